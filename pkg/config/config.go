package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

type Config struct {
	App      AppConfig                `yaml:"app"`
	Gateways map[string]GatewayConfig `yaml:"gateways"`
	Provider ProviderConfig           `yaml:"provider"`
	Memory   MemoryConfig             `yaml:"memory"`
	Workflow WorkflowConfig           `yaml:"workflow"`
}

type AppConfig struct {
	Name         string `yaml:"name"`
	DataDir      string `yaml:"data_dir"`
	DocumentsDir string `yaml:"documents_dir"`
}

type GatewayConfig struct {
	Token   string `yaml:"token"`
	Enabled bool   `yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type MemoryConfig struct {
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

type WorkflowConfig struct {
	// ReviewEnabled routes completed dialogues through the draft/review
	// pipeline and approval gate; when false a completed dialogue executes
	// its single step directly. Defaults to true.
	ReviewEnabled   *bool   `yaml:"review_enabled"`
	ReviewThreshold float64 `yaml:"review_threshold"`
	// OutboxFlushSeconds controls how often queued outbox emails are retried.
	OutboxFlushSeconds int `yaml:"outbox_flush_seconds"`
}

// LoadConfig reads the YAML config file and fills defaults. A missing file
// is not fatal; the defaults describe a usable demo setup.
func LoadConfig(path string) *Config {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config: %v, using defaults", err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "assistant"
	}
	if c.App.DataDir == "" {
		c.App.DataDir = "memory_db"
	}
	if c.App.DocumentsDir == "" {
		c.App.DocumentsDir = "user_documents"
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "memory_db/interactions.db"
	}
	if c.Memory.MaxEntries <= 0 {
		c.Memory.MaxEntries = 100
	}
	if c.Workflow.ReviewEnabled == nil {
		enabled := true
		c.Workflow.ReviewEnabled = &enabled
	}
	if c.Workflow.ReviewThreshold <= 0 {
		c.Workflow.ReviewThreshold = 0.7
	}
	if c.Workflow.OutboxFlushSeconds <= 0 {
		c.Workflow.OutboxFlushSeconds = 300
	}
	if c.Provider.Model == "" {
		c.Provider.Model = "gpt-4o-mini"
	}
}

// ReviewOn reports whether completed dialogues go through the
// draft/review/approval pipeline.
func (c *Config) ReviewOn() bool {
	return c.Workflow.ReviewEnabled == nil || *c.Workflow.ReviewEnabled
}

// GetTelegramConfig returns the telegram gateway config if enabled.
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled {
		return tg, true
	}
	return GatewayConfig{}, false
}

// LoadEnvCredentials reads tool and provider credentials from environment
// variables. Provider settings from the environment override the file.
func (c *Config) LoadEnvCredentials() contracts.APICredentials {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		c.Provider.Model = model
	}

	creds := contracts.APICredentials{
		GmailAddress:     os.Getenv("GMAIL_SENDER"),
		GmailAppPassword: os.Getenv("GMAIL_APP_PASSWORD"),
		GmailSMTPHost:    "smtp.gmail.com",
		GmailSMTPPort:    465,

		PipedriveAPIToken: os.Getenv("PIPEDRIVE_API_TOKEN"),
		PipedriveDomain:   os.Getenv("PIPEDRIVE_DOMAIN"),

		CalendlyToken:          os.Getenv("CALENDLY_API_KEY"),
		CalendlyEventTypeUUID:  os.Getenv("CALENDLY_EVENT_TYPE_UUID"),
		CalendlySchedulingLink: os.Getenv("CALENDLY_SCHEDULING_LINK"),
	}

	if host := os.Getenv("GMAIL_SMTP_HOST"); host != "" {
		creds.GmailSMTPHost = host
	}
	if port := os.Getenv("GMAIL_SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			creds.GmailSMTPPort = p
		}
	}

	return creds
}
