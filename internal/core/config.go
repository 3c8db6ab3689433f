package core

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the repo-level configuration read from .repokit.yaml at the
// repository root. Every field has a default so a repo without the file
// behaves identically to one with an empty file.
type Config struct {
	// PlanDir is the plan directory, relative to the repo root.
	PlanDir string
	// HooksDir is where transition hook scripts live, relative to the root.
	HooksDir string
	// DefaultKind is used by 'plan create' when --kind is omitted.
	DefaultKind string
	// DefaultAuthor is used for history entries when --author is omitted.
	DefaultAuthor string
	// AIProvider selects the advisory validation backend ("" disables it).
	AIProvider string
}

func defaultConfig() *Config {
	return &Config{
		PlanDir:     "plan",
		HooksDir:    "scripts/plan-hooks",
		DefaultKind: "feature",
	}
}

// LoadConfig reads .repokit.yaml from repoRoot using Viper. A missing file
// yields the defaults. The LLM_PROVIDER environment variable overrides
// ai.provider so CI can enable validation without editing the file.
func LoadConfig(repoRoot string) (*Config, error) {
	cfg := defaultConfig()

	v := viper.New()
	v.SetConfigName(".repokit")
	v.SetConfigType("yaml")
	v.AddConfigPath(repoRoot)

	v.SetDefault("plan.dir", cfg.PlanDir)
	v.SetDefault("hooks.dir", cfg.HooksDir)
	v.SetDefault("defaults.kind", cfg.DefaultKind)
	v.SetDefault("defaults.author", cfg.DefaultAuthor)
	v.SetDefault("ai.provider", cfg.AIProvider)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading .repokit.yaml: %w", err)
		}
	}

	cfg.PlanDir = v.GetString("plan.dir")
	cfg.HooksDir = v.GetString("hooks.dir")
	cfg.DefaultKind = v.GetString("defaults.kind")
	cfg.DefaultAuthor = v.GetString("defaults.author")
	cfg.AIProvider = v.GetString("ai.provider")

	if env := os.Getenv("LLM_PROVIDER"); env != "" {
		cfg.AIProvider = env
	}
	return cfg, nil
}
