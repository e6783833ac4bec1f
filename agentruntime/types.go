// Package agentruntime implements the Agent Runtime (spec §4.4): binds
// a declaratively-configured role to the Model Router and a subset of
// the Tool Registry, and executes one task per call. The runtime holds
// no state between tasks; everything that survives a call lives in the
// Memory Store.
package agentruntime

import "realtorflow/platform/llmrouter"

// RoleName is one of the six fixed agent roles spec §4.4 enumerates.
type RoleName string

const (
	RoleDataExtraction    RoleName = "data_extraction"
	RoleContractGenerator RoleName = "contract_generator"
	RoleComplianceChecker RoleName = "compliance_checker"
	RoleSignatureTracker  RoleName = "signature_tracker"
	RoleSummaryAgent      RoleName = "summary_agent"
	RoleHelpAgent         RoleName = "help_agent"
)

// RoleDef is one role's declarative definition, loaded from
// config/roles.yaml. The struct shape is explicit and validated at
// load rather than a free-form attribute bag.
type RoleDef struct {
	Name                  RoleName `yaml:"name"`
	Goal                  string   `yaml:"goal"`
	Backstory             string   `yaml:"backstory"`
	Tools                 []string `yaml:"tools"`
	DelegationAllowed     bool     `yaml:"delegation_allowed"`
	ModelPreference       string   `yaml:"model_preference"`
	DefaultExpectedOutput string   `yaml:"default_expected_output"`
	MaxIterations         int      `yaml:"max_iterations"`
}

// allowsTool reports whether name is in this role's static tool
// allow-list (spec §4.2: "Roles may not invoke tools outside their
// list").
func (r *RoleDef) allowsTool(name string) bool {
	for _, t := range r.Tools {
		if t == name {
			return true
		}
	}
	return false
}

// rolesFile is the root document shape of config/roles.yaml, mirroring
// the teacher's apiVersion/kind/metadata/spec convention for
// declarative config.
type rolesFile struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Metadata   struct {
		Name string `yaml:"name"`
	} `yaml:"metadata"`
	Spec struct {
		Roles []RoleDef `yaml:"roles"`
	} `yaml:"spec"`
}

// TaskInput is the task-execution contract's input (spec §4.4 step 1):
// the workflow orchestrator fills this from its own TaskSpec and
// execution context without agentruntime importing the workflow
// package.
type TaskInput struct {
	TaskID         string
	WorkflowID     string
	Role           RoleName
	Description    string
	ExpectedOutput string
	InputData      map[string]any
	Context        map[string]any
	UserID         string
}

// TaskResult is the task-execution contract's output (spec §4.4 step
// 5).
type TaskResult struct {
	Output    string
	ModelUsed string
	Tokens    llmrouter.TokenUsage
	Cost      float64
}
