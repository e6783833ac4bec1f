package agentruntime

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

const defaultMaxIterations = 5

var validRoles = map[RoleName]bool{
	RoleDataExtraction:    true,
	RoleContractGenerator: true,
	RoleComplianceChecker: true,
	RoleSignatureTracker:  true,
	RoleSummaryAgent:      true,
	RoleHelpAgent:         true,
}

// delegatingRoles is the fixed set of roles spec §4.4 permits to
// delegate: help_agent, contract_generator, signature_tracker.
var delegatingRoles = map[RoleName]bool{
	RoleHelpAgent:         true,
	RoleContractGenerator: true,
	RoleSignatureTracker:  true,
}

// Registry holds the validated set of role definitions loaded from
// config/roles.yaml, mirroring the teacher's AgentRegistry: parse the
// whole directory/file, validate every entry, then atomically swap the
// map in.
type Registry struct {
	mu    sync.RWMutex
	roles map[RoleName]*RoleDef
}

func NewRegistry() *Registry {
	return &Registry{roles: make(map[RoleName]*RoleDef)}
}

// LoadRoles reads and validates the roles file at path.
func (r *Registry) LoadRoles(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading roles file %s: %w", path, err)
	}

	var doc rolesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing roles file %s: %w", path, err)
	}

	newRoles := make(map[RoleName]*RoleDef, len(doc.Spec.Roles))
	for i := range doc.Spec.Roles {
		role := doc.Spec.Roles[i]
		if !validRoles[role.Name] {
			return fmt.Errorf("unknown agent role %q in %s", role.Name, path)
		}
		if _, dup := newRoles[role.Name]; dup {
			return fmt.Errorf("duplicate role %q in %s", role.Name, path)
		}
		if role.DelegationAllowed && !delegatingRoles[role.Name] {
			return fmt.Errorf("role %q may not delegate per spec", role.Name)
		}
		if role.MaxIterations <= 0 {
			role.MaxIterations = defaultMaxIterations
		}
		newRoles[role.Name] = &role
	}

	if len(newRoles) == 0 {
		return fmt.Errorf("roles file %s declares no roles", path)
	}

	r.mu.Lock()
	r.roles = newRoles
	r.mu.Unlock()
	return nil
}

// Register adds or replaces a single role definition, primarily for
// tests that construct roles in-process instead of from a file.
func (r *Registry) Register(role *RoleDef) {
	if role.MaxIterations <= 0 {
		role.MaxIterations = defaultMaxIterations
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role.Name] = role
}

func (r *Registry) Get(name RoleName) (*RoleDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[name]
	return role, ok
}

// All returns every loaded role definition.
func (r *Registry) All() []*RoleDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*RoleDef, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out
}
