// Copyright 2025 RealtorFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"realtorflow/platform/agentruntime"
	"realtorflow/platform/audit"
	"realtorflow/platform/config"
	"realtorflow/platform/cost"
	"realtorflow/platform/datastore"
	"realtorflow/platform/llmrouter"
	"realtorflow/platform/logging"
	"realtorflow/platform/memory"
	"realtorflow/platform/storage"
	"realtorflow/platform/tokens"
	"realtorflow/platform/tools"
	"realtorflow/platform/workflow"
)

func main() {
	log := logging.New("orchestrator")

	cfg, err := config.Load()
	if err != nil {
		log.Error("", "failed to load configuration", nil, logging.Fields{"error": err.Error()})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mem, err := buildMemoryStore(ctx, cfg, log)
	if err != nil {
		log.Error("", "failed to build memory store", nil, logging.Fields{"error": err.Error()})
		os.Exit(1)
	}

	router, err := buildModelRouter(ctx, cfg, log)
	if err != nil {
		log.Error("", "failed to build model router", nil, logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
	router.StartHealthCheckLoop(ctx)
	defer router.Stop()

	auditLogger, err := audit.NewLogger(cfg.AuditLogDSN, log.With("audit"))
	if err != nil {
		log.Error("", "failed to build audit logger", nil, logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
	defer func() { _ = auditLogger.Close() }()

	// orch is constructed after toolRegistry (whose workflow_management
	// tool needs to call back into it), but the tool is only ever
	// invoked once a workflow is running, by which point orch is set.
	// The indirection avoids a toolRegistry<->orch import cycle.
	var orch *workflow.Orchestrator
	toolRegistry, err := buildToolRegistry(ctx, cfg, log, mem, router, auditLogger, func(ctx context.Context, workflowID, taskID string) (map[string]any, error) {
		if orch == nil {
			return nil, fmt.Errorf("workflow orchestrator not ready")
		}
		status, err := orch.GetWorkflowStatus(workflowID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"task_id":         taskID,
			"workflow_status": status.Status,
			"progress":        status.Progress,
			"completed_tasks": status.CompletedTasks,
			"total_tasks":     status.TotalTasks,
			"failed_tasks":    status.FailedTasks,
		}, nil
	})
	if err != nil {
		log.Error("", "failed to build tool registry", nil, logging.Fields{"error": err.Error()})
		os.Exit(1)
	}

	roles := agentruntime.NewRegistry()
	if err := roles.LoadRoles(cfg.RolesConfigPath); err != nil {
		log.Error("", "failed to load agent roles", nil, logging.Fields{"error": err.Error(), "path": cfg.RolesConfigPath})
		os.Exit(1)
	}
	runtime := agentruntime.New(roles, router, toolRegistry, mem, log.With("agentruntime"))

	defs := workflow.NewDefinitionRegistry()
	orch = workflow.New(cfg, log.With("workflow"), mem, newAgentExecutor(runtime), defs)
	orch.Start(ctx)
	defer orch.Stop()

	srv := &server{orch: orch, router: router}
	r := mux.NewRouter()
	srv.registerRoutes(r)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info("", "orchestrator listening", logging.Fields{"port": cfg.HTTPPort})
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("", "http server exited with error", nil, logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
}

// buildMemoryStore wires the Redis-backed durable peer when a peer URL
// is configured; otherwise the store runs cache-only.
func buildMemoryStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (*memory.Store, error) {
	var peer memory.DurablePeer
	if cfg.MemoryPeerURL != "" {
		redisPeer, err := memory.NewRedisPeer(ctx, cfg.MemoryPeerURL, log.With("memory.redis"))
		if err != nil {
			return nil, err
		}
		peer = redisPeer
	}
	return memory.New(cfg, log.With("memory"), peer), nil
}

// buildToolRegistry constructs every domain tool backend named in
// SPEC_FULL's domain-stack expansion and registers them under the
// names the agent roles in config/roles.yaml reference: summarization
// (summary_agent) and workflow_management (signature_tracker,
// help_agent) included, each wired via the injected-function pattern
// the tools package uses to avoid importing llmrouter/workflow back.
func buildToolRegistry(ctx context.Context, cfg *config.Config, log *logging.Logger, mem *memory.Store, router *llmrouter.Router, auditLogger *audit.Logger, statusLookup tools.StatusLookup) (*tools.Registry, error) {
	reg := tools.New(log.With("tools"), mem)
	reg.WithAuditLogger(auditLogger)

	backend, err := storage.NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	reg.Register(tools.NewDocumentProcessingTool(backend, "realtorflow-documents"))

	if cfg.MongoURI != "" {
		extractionStore, err := datastore.NewExtractionStore(ctx, cfg.MongoURI, "realtorflow")
		if err != nil {
			return nil, err
		}
		reg.Register(tools.NewDataExtractionTool(extractionStore))
	}

	if cfg.ComplianceDSN != "" {
		complianceStore, err := datastore.NewComplianceStore(cfg.ComplianceDSN)
		if err != nil {
			return nil, err
		}
		reg.Register(tools.NewComplianceCheckingTool(complianceStore))
	}

	reg.Register(tools.NewContractGenerationTool())
	reg.Register(tools.NewSignatureTrackingTool(tokens.NewIssuer(cfg.SignatureJWTSecret)))
	reg.Register(tools.NewKnowledgeBaseTool(nil))
	reg.Register(tools.NewSummarizationTool(newSummarizer(router)))
	reg.Register(tools.NewWorkflowManagementTool(statusLookup))

	return reg, nil
}

// newSummarizer adapts the Model Router's generic GenerateResponse
// into the Summarizer closure the summarization tool calls.
func newSummarizer(router *llmrouter.Router) tools.Summarizer {
	return func(ctx context.Context, text string, maxWords int) (string, error) {
		resp, err := router.GenerateResponse(ctx, llmrouter.Request{
			Messages: []llmrouter.Message{
				{Role: "user", Content: text},
			},
			SystemPrompt: fmt.Sprintf("Summarize the user's text in at most %d words. Respond with only the summary.", maxWords),
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}
}

// buildModelRouter registers the catalog of callable models and the
// provider adapters that back them, wiring every adapter the spec's
// domain stack names rather than only the ones a default deployment
// would exercise. Provider API keys are resolved through AWS Secrets
// Manager first when a "*_SECRET_ARN" variable is set, falling back
// to the plaintext env var (config/secrets.go).
func buildModelRouter(ctx context.Context, cfg *config.Config, log *logging.Logger) (*llmrouter.Router, error) {
	reg := llmrouter.NewRegistry()
	httpClient := &http.Client{Timeout: 60 * time.Second}

	var resolver config.SecretResolver
	if cfg.OpenAISecretARN != "" || cfg.AnthropicSecretARN != "" {
		awsResolver, err := config.NewAWSSecretResolver(ctx, cfg.SecretsRegion, log.With("secrets"))
		if err != nil {
			return nil, err
		}
		resolver = awsResolver
	}

	openAIKey, err := config.ResolveProviderKey(ctx, resolver, cfg.OpenAIAPIKey, cfg.OpenAISecretARN, "api_key")
	if err != nil {
		return nil, err
	}
	anthropicKey, err := config.ResolveProviderKey(ctx, resolver, cfg.AnthropicAPIKey, cfg.AnthropicSecretARN, "api_key")
	if err != nil {
		return nil, err
	}

	var opts []llmrouter.Option

	if openAIKey != "" {
		reg.Register(&llmrouter.ModelInfo{ID: "gpt-4o", Name: "GPT-4o", Provider: llmrouter.ProviderOpenAI, CostPerToken: 0.000005, ContextLength: 128000, PerformanceScore: 0.9})
		opts = append(opts, llmrouter.WithAdapter(llmrouter.ProviderOpenAI, llmrouter.NewOpenAINativeAdapter(openAIKey, "", httpClient)))
	}
	if anthropicKey != "" {
		reg.Register(&llmrouter.ModelInfo{ID: "claude-3-5-sonnet", Name: "Claude 3.5 Sonnet", Provider: llmrouter.ProviderAnthropic, CostPerToken: 0.000003, ContextLength: 200000, PerformanceScore: 0.92})
		opts = append(opts, llmrouter.WithAdapter(llmrouter.ProviderAnthropic, llmrouter.NewAnthropicNativeAdapter(anthropicKey, "", httpClient)))
	}
	if cfg.LocalModelURL != "" {
		reg.Register(&llmrouter.ModelInfo{ID: "local-llama", Name: "Local Llama", Provider: llmrouter.ProviderLocal, CostPerToken: 0, ContextLength: 8192, PerformanceScore: 0.6})
		opts = append(opts, llmrouter.WithAdapter(llmrouter.ProviderLocal, llmrouter.NewLocalHTTPAdapter(cfg.LocalModelURL, httpClient)))
	}
	if cfg.BedrockRegion != "" {
		bedrockClient, err := newBedrockClient(cfg.BedrockRegion)
		if err != nil {
			return nil, err
		}
		reg.Register(&llmrouter.ModelInfo{ID: "bedrock-claude", Name: "Claude on Bedrock", Provider: llmrouter.ProviderBedrock, CostPerToken: 0.000003, ContextLength: 200000, PerformanceScore: 0.92})
		opts = append(opts, llmrouter.WithAdapter(llmrouter.ProviderBedrock, llmrouter.NewBedrockAdapter(bedrockClient)))
	}

	if cfg.CostLedgerDSN != "" {
		ledger, err := cost.NewLedger(cfg.CostLedgerDSN)
		if err != nil {
			return nil, err
		}
		opts = append(opts, llmrouter.WithLedger(ledger))
	}

	return llmrouter.New(reg, cfg, log.With("llmrouter"), opts...), nil
}
