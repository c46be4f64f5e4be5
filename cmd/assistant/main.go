package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yashkalwar/autonomous-P1/internal/agent"
	"github.com/Yashkalwar/autonomous-P1/internal/documents"
	"github.com/Yashkalwar/autonomous-P1/internal/gateway"
	"github.com/Yashkalwar/autonomous-P1/internal/governance"
	"github.com/Yashkalwar/autonomous-P1/internal/llm"
	"github.com/Yashkalwar/autonomous-P1/internal/observability"
	"github.com/Yashkalwar/autonomous-P1/internal/store"
	"github.com/Yashkalwar/autonomous-P1/internal/tools"
	"github.com/Yashkalwar/autonomous-P1/pkg/config"
)

func main() {
	cfg := config.LoadConfig("config.yaml")
	creds := cfg.LoadEnvCredentials()

	observability.PrintBanner(cfg.App.Name)
	logger := observability.NewLogger(cfg.App.DataDir)

	// Tools register only when their credentials are present; the
	// executor reports "Tool not available" for the rest.
	registry := tools.NewRegistry()

	// Gmail always registers: without credentials every send falls back
	// to the durable outbox and is retried once SMTP is configured.
	gmail, err := tools.NewGmailAgent(creds, cfg.App.DataDir)
	if err != nil {
		log.Fatal(err)
	}
	registry.Register(gmail)
	if !creds.HasGmail() {
		log.Println("Gmail not configured (set GMAIL_SENDER and GMAIL_APP_PASSWORD); emails will queue in the outbox")
	}

	registry.Register(tools.NewPipedriveAgent(creds))
	if creds.HasCalendly() {
		registry.Register(tools.NewCalendlyAgent(creds))
	} else {
		log.Println("Calendly not configured; availability lookups disabled")
	}

	history, err := store.NewHistoryStore(cfg.Memory.Path, cfg.Memory.MaxEntries)
	if err != nil {
		log.Fatal(err)
	}
	defer history.Close()

	docs, err := documents.NewManager(cfg.App.DocumentsDir)
	if err != nil {
		log.Fatal(err)
	}

	client, err := llm.NewOpenAI(cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.BaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if !client.IsAvailable() {
		log.Println("No OPENAI_API_KEY set; running in degraded mode with rule-based classification")
	}

	gov := governance.NewDefaultPolicyEngine()
	// Default safety rules: never let generated parameters smuggle in
	// shell-style destruction.
	_ = gov.DenyParameters(`rm\s+-rf`)
	_ = gov.DenyParameters(`DROP\s+TABLE`)

	planner := agent.NewPlanner(client, logger)
	drafter := agent.NewDrafter(client)
	reviewer := agent.NewReviewer(cfg.Workflow.ReviewThreshold)
	executor := agent.NewExecutor(registry, gov, client, logger)

	assistant := agent.NewAssistant(
		planner, drafter, reviewer, executor,
		client, docs, history, registry, logger,
		cfg.ReviewOn(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flusher := agent.NewOutboxFlusher(gmail, logger, time.Duration(cfg.Workflow.OutboxFlushSeconds)*time.Second)
	go flusher.Start(ctx)

	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, assistant)
		if err != nil {
			log.Printf("Telegram gateway failed to start: %v", err)
		} else {
			go func() {
				if err := tg.Start(ctx); err != nil && err != context.Canceled {
					log.Printf("Telegram gateway stopped: %v", err)
				}
			}()
			defer tg.Stop()
		}
	}

	console := gateway.NewConsoleGateway(assistant)
	if err := console.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal(err)
	}
}
