package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/agents/orchestrator"
	auditx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/audit"
	classifyx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/classify"
	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
	execx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/exec"
	llmx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/llm"
	outboxx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/outbox"
	planx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/plan"
	promptx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/prompt"
	toolx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/tool"
	chatwebhookx "github.com/jirapatw/TAM-Copilot-Orchestrator/pkg/chatwebhook"
	configx "github.com/jirapatw/TAM-Copilot-Orchestrator/pkg/config"
	_ "github.com/jirapatw/TAM-Copilot-Orchestrator/pkg/logger/autoload"
	openrouterx "github.com/jirapatw/TAM-Copilot-Orchestrator/pkg/openrouter"
)

type AppConfig struct {
	// Tools allowed to carry the irreversible side-effect class. Everything
	// else that declares irreversible is rejected at registration.
	IrreversibleWhitelist string `envconfig:"IRREVERSIBLE_WHITELIST" split_words:"true" default:"crm.create_case,comm.chat_notify"`

	UseLLMClassifier bool `envconfig:"USE_LLM_CLASSIFIER" split_words:"true" default:"false"`
	UseRedisOutbox   bool `envconfig:"USE_REDIS_OUTBOX" split_words:"true" default:"false"`
	UseChatWebhook   bool `envconfig:"USE_CHAT_WEBHOOK" split_words:"true" default:"false"`
	UseAuditDB       bool `envconfig:"USE_AUDIT_DB" split_words:"true" default:"false"`
}

// The scenarios a TAM runs daily; each exercises one capability domain.
var demoRequests = []string{
	"Run a proactive health and cost check for Customer X and draft an email to the internal engineering team with the findings.",
	"A new service, 'AlloyDB Omni for Postgres', was just announced. Identify heavy Postgres users and draft an introductory email for them.",
	"We have a P1 incident for Customer Y regarding 'database latency'. Create a support case, notify the incident chat room, and check our knowledge base for post-mortems.",
	"Prepare the Q2 2026 QBR deck for Customer Z.",
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("TAM")

	registry := toolx.NewRegistry(
		toolx.WithIrreversibleWhitelist(splitList(appCfg.IrreversibleWhitelist)...),
	)
	if err := toolx.RegisterBuiltins(registry); err != nil {
		log.Fatal().Err(err).Msg("failed to register tool catalog")
	}
	if appCfg.UseChatWebhook {
		wireChatWebhook(registry)
	}

	invoker, err := toolx.NewInvoker(registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build tool invoker")
	}

	execCfg := configx.MustNew[execx.Config]("EXECUTOR")
	executor, err := execx.New(invoker, *execCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build plan executor")
	}

	classifier := buildClassifier(ctx, appCfg)
	box := buildOutbox(appCfg)
	sink := buildAuditSink(ctx, appCfg)

	orchestrator, err := orchestratorx.New(
		classifier,
		planx.NewBuilder(),
		executor,
		orchestratorx.WithOutbox(box),
		orchestratorx.WithAuditSink(sink),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	for i, text := range demoRequests {
		fmt.Printf("=== request %d ===\n%s\n\n", i+1, text)
		artifact, err := orchestrator.HandleRequest(ctx, contractx.Request{Text: text})
		if err != nil {
			log.Error().Err(err).Int("request", i+1).Msg("request failed")
			continue
		}
		printArtifact(artifact)
	}
}

func buildClassifier(ctx context.Context, appCfg *AppConfig) contractx.Classifier {
	if !appCfg.UseLLMClassifier {
		return classifyx.NewRuleClassifier()
	}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid openrouter configuration")
	}

	routerCfg := llmCfg.OpenRouterClassifier()
	// The SDK client carries the OpenRouter attribution headers; building it
	// up front surfaces a bad key before any request work starts.
	if openrouterx.NewClient(routerCfg) == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}

	chatModel, err := routerCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build classifier chat model")
	}

	prompts := promptx.LoadPromptSet()
	classifier, err := classifyx.NewLLMClassifier(ctx, chatModel, prompts.Classifier)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build llm classifier")
	}
	return classifier
}

func buildOutbox(appCfg *AppConfig) contractx.Outbox {
	if !appCfg.UseRedisOutbox {
		return outboxx.NewMemoryOutbox()
	}
	redisCfg := configx.MustNew[outboxx.UpstashRedisConfig]("OUTBOX_REDIS")
	box, err := outboxx.NewUpstashRedisOutbox(*redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build redis outbox")
	}
	return box
}

func buildAuditSink(ctx context.Context, appCfg *AppConfig) contractx.AuditSink {
	if !appCfg.UseAuditDB {
		return auditx.NewLogSink()
	}
	dbCfg := configx.MustNew[auditx.Config]("AUDIT")
	sink, err := auditx.NewBunSink(*dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build audit database sink")
	}
	if err := sink.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure audit schema")
	}
	return sink
}

// wireChatWebhook swaps the stub chat_notify implementation for a real
// webhook client. The tool keeps its registered spec and side-effect class;
// only the implementation changes.
func wireChatWebhook(registry *toolx.Registry) {
	webhookCfg := configx.MustNew[chatwebhookx.Config]("CHAT")
	client := chatwebhookx.MustNew(*webhookCfg)

	err := registry.Override(toolx.ToolChatNotify, func(ctx context.Context, args map[string]any) (any, error) {
		message, _ := args["message"].(string)
		if err := client.Notify(ctx, message); err != nil {
			return nil, toolx.TransientError("chat webhook: %v", err)
		}
		return map[string]any{"status": "delivered"}, nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire chat webhook")
	}
}

func printArtifact(artifact *contractx.SynthesizedArtifact) {
	raw, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to render artifact")
		return
	}
	fmt.Printf("%s\n\n", raw)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
