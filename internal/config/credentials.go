package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Credentials are the secrets the agent's collaborators need. They are built
// once in main and passed explicitly; nothing below main reads the environment.
type Credentials struct {
	ManifoldAPIKey string
	OpenAIAPIKey   string
	OmenPrivateKey string
}

func (c *Config) Credentials() Credentials {
	return Credentials{
		ManifoldAPIKey: c.Manifold.APIKey,
		OpenAIAPIKey:   c.OpenAI.APIKey,
		OmenPrivateKey: c.Omen.PrivateKey,
	}
}

// OmenAddress derives the public address bets are placed from.
func (c Credentials) OmenAddress() (common.Address, error) {
	hexKey := strings.TrimPrefix(strings.TrimSpace(c.OmenPrivateKey), "0x")
	if hexKey == "" {
		return common.Address{}, fmt.Errorf("omen private key is empty")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("parsing omen private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

const redacted = "***"

// Redacted returns a copy of cfg that is safe to log.
func Redacted(cfg *Config) Config {
	out := *cfg
	redact(&out.Manifold.APIKey)
	redact(&out.Omen.PrivateKey)
	redact(&out.Omen.SubgraphAPIKey)
	redact(&out.OpenAI.APIKey)

	if cfg.Agents != nil {
		out.Agents = make(map[string]AgentConfig, len(cfg.Agents))
		for k, v := range cfg.Agents {
			out.Agents[k] = v
		}
	}
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
