package config

import (
	"os"
	"strconv"
	"time"
)

// applyEnvOverrides lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.General.DBPath, "PROPHET_DB_PATH")
	setStr(&cfg.General.LogLevel, "PROPHET_LOG_LEVEL")

	setDuration(&cfg.Schedule.RunInterval, "PROPHET_RUN_INTERVAL")
	setInt(&cfg.Schedule.ListingLimit, "PROPHET_LISTING_LIMIT")

	// Unprefixed names are read first so PROPHET_* always wins.
	setStr(&cfg.Manifold.APIKey, "MANIFOLD_API_KEY")
	setStr(&cfg.Manifold.APIKey, "PROPHET_MANIFOLD_API_KEY")

	setStr(&cfg.Omen.SubgraphURL, "PROPHET_OMEN_SUBGRAPH_URL")
	setStr(&cfg.Omen.SubgraphAPIKey, "PROPHET_OMEN_SUBGRAPH_API_KEY")
	setStr(&cfg.Omen.PrivateKey, "BET_FROM_PRIVATE_KEY")
	setStr(&cfg.Omen.PrivateKey, "PROPHET_OMEN_PRIVATE_KEY")

	setStr(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setStr(&cfg.OpenAI.APIKey, "PROPHET_OPENAI_API_KEY")
	setStr(&cfg.OpenAI.BaseURL, "PROPHET_OPENAI_BASE_URL")

	setBool(&cfg.Execution.DryRun, "PROPHET_DRY_RUN")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
