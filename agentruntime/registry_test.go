package agentruntime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRolesFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRegistry_LoadRoles_Success(t *testing.T) {
	path := writeRolesFile(t, `
apiVersion: v1
kind: AgentRoles
metadata:
  name: test-roles
spec:
  roles:
    - name: data_extraction
      goal: extract fields
      backstory: a careful paralegal
      tools: [document_processing]
      delegation_allowed: false
    - name: help_agent
      goal: help users
      backstory: a patient assistant
      tools: [knowledge_base]
      delegation_allowed: true
`)

	reg := NewRegistry()
	require.NoError(t, reg.LoadRoles(path))

	role, ok := reg.Get(RoleDataExtraction)
	require.True(t, ok)
	assert.Equal(t, "extract fields", role.Goal)
	assert.Equal(t, defaultMaxIterations, role.MaxIterations)
	assert.True(t, role.allowsTool("document_processing"))
	assert.False(t, role.allowsTool("signature_tracking"))

	help, ok := reg.Get(RoleHelpAgent)
	require.True(t, ok)
	assert.True(t, help.DelegationAllowed)
}

func TestRegistry_LoadRoles_UnknownRole(t *testing.T) {
	path := writeRolesFile(t, `
spec:
  roles:
    - name: not_a_real_role
      goal: x
`)
	reg := NewRegistry()
	require.Error(t, reg.LoadRoles(path))
}

func TestRegistry_LoadRoles_DelegationNotAllowedForRole(t *testing.T) {
	path := writeRolesFile(t, `
spec:
  roles:
    - name: data_extraction
      goal: x
      delegation_allowed: true
`)
	reg := NewRegistry()
	require.Error(t, reg.LoadRoles(path))
}

func TestRegistry_LoadRoles_DuplicateRole(t *testing.T) {
	path := writeRolesFile(t, `
spec:
  roles:
    - name: help_agent
      goal: x
    - name: help_agent
      goal: y
`)
	reg := NewRegistry()
	require.Error(t, reg.LoadRoles(path))
}

func TestRegistry_LoadRoles_MissingFile(t *testing.T) {
	reg := NewRegistry()
	require.Error(t, reg.LoadRoles("/nonexistent/roles.yaml"))
}
