package memory

// AddEventListener registers callback to run whenever eventType is
// published. Delivery is best-effort and in-process only: no history,
// no durable peer involvement (spec §4.1).
func (s *Store) AddEventListener(eventType string, callback func(event string, payload any)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners[eventType] = append(s.listeners[eventType], callback)
}

// Publish invokes every listener registered for eventType. A listener
// panic is recovered and logged so one bad callback can't take down the
// publisher or starve its siblings.
func (s *Store) Publish(eventType string, payload any) {
	s.listenersMu.RLock()
	callbacks := append([]func(event string, payload any){}, s.listeners[eventType]...)
	s.listenersMu.RUnlock()

	for _, cb := range callbacks {
		s.runListener(cb, eventType, payload)
	}
}

func (s *Store) runListener(cb func(event string, payload any), eventType string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("", "event listener panicked", nil, map[string]any{"event_type": eventType, "recovered": r})
		}
	}()
	cb(eventType, payload)
}
