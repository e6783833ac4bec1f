// Package config assembles the single immutable configuration struct
// the core is built from. Every option named in the specification's
// "Configuration" section is a typed field here, validated once at
// startup — not a dynamic attribute bag read ad hoc through the
// codebase.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RoutingStrategy selects how the Model Router picks among available
// models when no per-request model_preference is honored.
type RoutingStrategy string

const (
	StrategyCostOptimized RoutingStrategy = "cost_optimized"
	StrategyPerformance   RoutingStrategy = "performance"
	StrategyBalanced      RoutingStrategy = "balanced"
)

func (s RoutingStrategy) valid() bool {
	switch s {
	case StrategyCostOptimized, StrategyPerformance, StrategyBalanced:
		return true
	}
	return false
}

// StorageBackend selects which blob backend document-processing and
// signature-tracking tools use.
type StorageBackend string

const (
	StorageS3    StorageBackend = "s3"
	StorageGCS   StorageBackend = "gcs"
	StorageAzure StorageBackend = "azure"
)

// Config is the immutable configuration for one orchestrator process.
type Config struct {
	// Workflow Orchestrator (§6)
	WorkerCount            int
	MonitorIntervalSeconds int
	ReadyQueueCapacity     int
	DefaultTaskMaxRetries  int

	// Model Router (§6)
	ModelRouterStrategy                   RoutingStrategy
	ModelRouterFallbackEnabled            bool
	ModelRouterMaxRetries                 int
	ModelRouterHealthCheckIntervalSeconds int

	// Memory Store (§6)
	MemoryPeerURL             string
	MemoryShortTermTTLSeconds int
	MemoryWorkflowTTLSeconds  int
	MemorySharedTTLSeconds    int
	MemoryLongTermTTLSeconds  int
	MemorySweepIntervalSeconds int

	// Domain stack additions (SPEC_FULL §2)
	StorageBackendKind StorageBackend
	CostLedgerDSN      string // Postgres DSN; empty disables durable cost accounting
	AuditLogDSN        string // Postgres DSN; empty disables the tool-invocation audit trail
	ComplianceDSN      string // MySQL DSN for the compliance_checking tool
	MongoURI           string // MongoDB URI for the data_extraction tool
	SignatureJWTSecret string // HMAC secret for signature-tracking receipts

	// Provider credentials, read directly or resolved via Secrets Manager
	// when the corresponding *_SECRET_ARN variable is set (see secrets.go).
	OpenAIAPIKey       string
	OpenAISecretARN    string
	AnthropicAPIKey    string
	AnthropicSecretARN string
	BedrockRegion      string
	LocalModelURL      string
	SecretsRegion      string // AWS region used to resolve *_SECRET_ARN values

	HTTPPort int

	// Agent Runtime (§6)
	RolesConfigPath string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q", key, v)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %q", key, v)
	}
	return b, nil
}

// Load reads configuration from the process environment and validates
// it. Unrecognized enum values, non-positive pool sizes, and similar
// malformed settings return an error rather than silently defaulting.
func Load() (*Config, error) {
	c := &Config{}
	var err error

	if c.WorkerCount, err = getEnvInt("WORKER_COUNT", 3); err != nil {
		return nil, err
	}
	if c.WorkerCount <= 0 {
		return nil, fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}

	if c.MonitorIntervalSeconds, err = getEnvInt("MONITOR_INTERVAL_SECONDS", 10); err != nil {
		return nil, err
	}
	if c.ReadyQueueCapacity, err = getEnvInt("READY_QUEUE_CAPACITY", 1024); err != nil {
		return nil, err
	}
	if c.DefaultTaskMaxRetries, err = getEnvInt("DEFAULT_TASK_MAX_RETRIES", 3); err != nil {
		return nil, err
	}

	c.ModelRouterStrategy = RoutingStrategy(getEnv("MODEL_ROUTER_STRATEGY", string(StrategyBalanced)))
	if !c.ModelRouterStrategy.valid() {
		return nil, fmt.Errorf("invalid MODEL_ROUTER_STRATEGY %q, want one of cost_optimized|performance|balanced", c.ModelRouterStrategy)
	}
	if c.ModelRouterFallbackEnabled, err = getEnvBool("MODEL_ROUTER_FALLBACK_ENABLED", true); err != nil {
		return nil, err
	}
	if c.ModelRouterMaxRetries, err = getEnvInt("MODEL_ROUTER_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if c.ModelRouterHealthCheckIntervalSeconds, err = getEnvInt("MODEL_ROUTER_HEALTH_CHECK_INTERVAL_SECONDS", 300); err != nil {
		return nil, err
	}

	c.MemoryPeerURL = getEnv("MEMORY_PEER_URL", "")
	if c.MemoryShortTermTTLSeconds, err = getEnvInt("MEMORY_SHORT_TERM_TTL_SECONDS", 3600); err != nil {
		return nil, err
	}
	if c.MemoryWorkflowTTLSeconds, err = getEnvInt("MEMORY_WORKFLOW_TTL_SECONDS", 86400); err != nil {
		return nil, err
	}
	if c.MemorySharedTTLSeconds, err = getEnvInt("MEMORY_SHARED_TTL_SECONDS", 604800); err != nil {
		return nil, err
	}
	if c.MemoryLongTermTTLSeconds, err = getEnvInt("MEMORY_LONG_TERM_TTL_SECONDS", 2592000); err != nil {
		return nil, err
	}
	if c.MemorySweepIntervalSeconds, err = getEnvInt("MEMORY_SWEEP_INTERVAL_SECONDS", 60); err != nil {
		return nil, err
	}

	c.StorageBackendKind = StorageBackend(getEnv("STORAGE_BACKEND", string(StorageS3)))
	switch c.StorageBackendKind {
	case StorageS3, StorageGCS, StorageAzure:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q, want one of s3|gcs|azure", c.StorageBackendKind)
	}

	c.CostLedgerDSN = getEnv("COST_LEDGER_DSN", "")
	c.AuditLogDSN = getEnv("AUDIT_LOG_DSN", "")
	c.ComplianceDSN = getEnv("COMPLIANCE_DSN", "")
	c.MongoURI = getEnv("MONGO_URI", "")
	c.SignatureJWTSecret = getEnv("SIGNATURE_JWT_SECRET", "")

	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	c.OpenAISecretARN = getEnv("OPENAI_API_KEY_SECRET_ARN", "")
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", "")
	c.AnthropicSecretARN = getEnv("ANTHROPIC_API_KEY_SECRET_ARN", "")
	c.BedrockRegion = getEnv("BEDROCK_REGION", "")
	c.LocalModelURL = getEnv("LOCAL_MODEL_URL", "http://localhost:11434")
	c.SecretsRegion = getEnv("SECRETS_REGION", "")

	if c.HTTPPort, err = getEnvInt("PORT", 8081); err != nil {
		return nil, err
	}

	c.RolesConfigPath = getEnv("ROLES_CONFIG_PATH", "config/roles.yaml")

	return c, nil
}

// ShortTermTTL etc. convert the stored second counts into time.Duration
// for callers in the memory package.
func (c *Config) ShortTermTTL() time.Duration { return time.Duration(c.MemoryShortTermTTLSeconds) * time.Second }
func (c *Config) WorkflowTTL() time.Duration  { return time.Duration(c.MemoryWorkflowTTLSeconds) * time.Second }
func (c *Config) SharedTTL() time.Duration    { return time.Duration(c.MemorySharedTTLSeconds) * time.Second }
func (c *Config) LongTermTTL() time.Duration  { return time.Duration(c.MemoryLongTermTTLSeconds) * time.Second }
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.MemorySweepIntervalSeconds) * time.Second
}
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSeconds) * time.Second
}
func (c *Config) HealthCheckInterval() time.Duration {
	return time.Duration(c.ModelRouterHealthCheckIntervalSeconds) * time.Second
}

// RedactedDSN returns a DSN with any password component masked, for
// logging connection strings without leaking credentials.
func RedactedDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	at := strings.Index(dsn, "@")
	colon := strings.Index(dsn, "://")
	if at == -1 || colon == -1 || at < colon {
		return dsn
	}
	userinfo := dsn[colon+3 : at]
	if !strings.Contains(userinfo, ":") {
		return dsn
	}
	user := userinfo[:strings.Index(userinfo, ":")]
	return dsn[:colon+3] + user + ":***" + dsn[at:]
}
