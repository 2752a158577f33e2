package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	General   GeneralConfig          `toml:"general"`
	Schedule  ScheduleConfig         `toml:"schedule"`
	Manifold  ManifoldConfig         `toml:"manifold"`
	Omen      OmenConfig             `toml:"omen"`
	OpenAI    OpenAIConfig           `toml:"openai"`
	Execution ExecutionConfig        `toml:"execution"`
	Agents    map[string]AgentConfig `toml:"agents"`
}

type GeneralConfig struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
}

type ScheduleConfig struct {
	RunInterval  Duration `toml:"run_interval"`
	ListingLimit int      `toml:"listing_limit"`
	QuestionTTL  Duration `toml:"question_ttl"`
}

type ManifoldConfig struct {
	APIKey string `toml:"api_key"`
}

type OmenConfig struct {
	SubgraphURL    string  `toml:"subgraph_url"`
	SubgraphAPIKey string  `toml:"subgraph_api_key"`
	PrivateKey     string  `toml:"private_key"`
	RequestsPerSec float64 `toml:"requests_per_sec"`
}

type OpenAIConfig struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	RequestsPerSec float64  `toml:"requests_per_sec"`
	MaxRetries     uint64   `toml:"max_retries"`
	Timeout        Duration `toml:"timeout"`
}

type ExecutionConfig struct {
	DryRun bool `toml:"dry_run"`
}

// AgentConfig overrides or adds an agent variant.
type AgentConfig struct {
	Model            string `toml:"model"`
	MaxMarketsPerRun int    `toml:"max_markets_per_run"`
}

// Duration wraps time.Duration for TOML unmarshaling.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Load reads the TOML file at path over the defaults, then applies .env and
// PROPHET_* environment overrides. A missing file is not an error: the agent
// can run from defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Silently ignore a missing .env file.
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DBPath:   "./data/prophetagent.db",
			LogLevel: "info",
		},
		Schedule: ScheduleConfig{
			RunInterval:  Duration{1 * time.Hour},
			ListingLimit: 100,
			QuestionTTL:  Duration{6 * time.Hour},
		},
		Omen: OmenConfig{
			SubgraphURL:    "https://api.thegraph.com/subgraphs/name/protofire/omen-xdai",
			RequestsPerSec: 5,
		},
		OpenAI: OpenAIConfig{
			RequestsPerSec: 2,
			MaxRetries:     3,
			Timeout:        Duration{2 * time.Minute},
		},
	}
}

// Validate checks that the secrets needed for platform are present.
func (c *Config) Validate(platform string) error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key is required")
	}
	switch platform {
	case "manifold":
		if c.Manifold.APIKey == "" {
			return fmt.Errorf("manifold api key is required")
		}
	case "omen":
		if c.Omen.PrivateKey == "" {
			return fmt.Errorf("omen private key is required")
		}
		if c.Omen.SubgraphURL == "" {
			return fmt.Errorf("omen subgraph url is required")
		}
	}
	if c.Schedule.ListingLimit <= 0 {
		return fmt.Errorf("schedule.listing_limit must be positive")
	}
	return nil
}
