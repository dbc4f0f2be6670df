// Package scraper is the Penske integration built on the resolution
// engine: seeded field strategies, the form-filling adapter, quote
// parsing, and the demo fallback used when live scraping yields nothing.
package scraper

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/saudraja/ollama-ai-scrapper/browser"
	"github.com/saudraja/ollama-ai-scrapper/ollama"
)

// Config holds the daemon configuration.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	KBPath      string `yaml:"kb_path"`
	AuditDBPath string `yaml:"audit_db_path"`

	// ProviderURLs maps provider names to their entry pages.
	ProviderURLs map[string]string `yaml:"provider_urls"`

	// SnippetBudget caps DOM snippets captured for repair.
	SnippetBudget int `yaml:"snippet_budget"`

	// AttemptTimeout bounds one strategy attempt.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// DemoFallback serves deterministic demo quotes when live scraping
	// yields nothing.
	DemoFallback bool `yaml:"demo_fallback"`

	// AIRepair enables the Ollama-backed generator.
	AIRepair bool `yaml:"ai_repair"`

	Ollama  ollama.Config  `yaml:"ollama"`
	Browser browser.Config `yaml:"browser"`
}

func (c *Config) defaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}
	if c.KBPath == "" {
		c.KBPath = "selector_kb.json"
	}
	if c.AuditDBPath == "" {
		c.AuditDBPath = "audit.db"
	}
	if c.ProviderURLs == nil {
		c.ProviderURLs = map[string]string{
			"penske": "https://www.pensketruckrental.com/",
		}
	}
	if c.SnippetBudget <= 0 {
		c.SnippetBudget = 2000
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 5 * time.Second
	}
}

// LoadConfigFile reads a YAML config file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}
