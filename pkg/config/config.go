package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/tinyland-inc/babelrelay/pkg/store"
	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

type Config struct {
	Relay      RelayConfig      `json:"relay"`
	Channels   ChannelsConfig   `json:"channels"`
	Translator translate.Config `json:"translator"`
	Store      StoreConfig      `json:"store"`
	Operator   OperatorConfig   `json:"operator,omitzero"`
	Sweep      SweepConfig      `json:"sweep,omitzero"`
}

type RelayConfig struct {
	// MaxChunkSize is in runes, sized safely below the transport message
	// length limit.
	MaxChunkSize int `env:"BABELRELAY_RELAY_MAX_CHUNK_SIZE" json:"max_chunk_size"`
	// EphemeralTTLSeconds is how long a flag-triggered copy survives.
	EphemeralTTLSeconds int    `env:"BABELRELAY_RELAY_EPHEMERAL_TTL_SECONDS" json:"ephemeral_ttl_seconds"`
	FanoutConcurrency   int    `env:"BABELRELAY_RELAY_FANOUT_CONCURRENCY"    json:"fanout_concurrency"`
	IdentityName        string `env:"BABELRELAY_RELAY_IDENTITY_NAME"         json:"identity_name"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
	Slack   SlackConfig   `json:"slack"`
}

type DiscordConfig struct {
	Enabled bool   `env:"BABELRELAY_CHANNELS_DISCORD_ENABLED" json:"enabled"`
	Token   string `env:"BABELRELAY_CHANNELS_DISCORD_TOKEN"   json:"token"`
	// GuildID scopes slash-command registration; empty registers globally.
	GuildID string `env:"BABELRELAY_CHANNELS_DISCORD_GUILD_ID" json:"guild_id,omitempty"`
}

type SlackConfig struct {
	Enabled  bool   `env:"BABELRELAY_CHANNELS_SLACK_ENABLED"   json:"enabled"`
	BotToken string `env:"BABELRELAY_CHANNELS_SLACK_BOT_TOKEN" json:"bot_token"`
	AppToken string `env:"BABELRELAY_CHANNELS_SLACK_APP_TOKEN" json:"app_token"`
}

type StoreConfig struct {
	// Driver is "file" (JSON tables in Path, the default) or "sqlite"
	// (Path is the database file).
	Driver string `env:"BABELRELAY_STORE_DRIVER" json:"driver"`
	Path   string `env:"BABELRELAY_STORE_PATH"   json:"path"`
}

type OperatorConfig struct {
	// UserID receives failure escalations as direct messages. Empty means
	// failures are only logged.
	UserID string `env:"BABELRELAY_OPERATOR_USER_ID" json:"user_id,omitempty"`
}

// SweepConfig drives optional scheduled backfill runs.
type SweepConfig struct {
	Enabled bool   `env:"BABELRELAY_SWEEP_ENABLED" json:"enabled"`
	Cron    string `env:"BABELRELAY_SWEEP_CRON"    json:"cron,omitempty"`
	// Limit is the history depth per sweep and channel.
	Limit    int           `env:"BABELRELAY_SWEEP_LIMIT" json:"limit,omitempty"`
	Channels []SweepTarget `json:"channels,omitempty"`
}

type SweepTarget struct {
	Transport string `json:"transport"`
	ChannelID string `json:"channel_id"`
}

func DefaultConfig() *Config {
	return &Config{
		Relay: RelayConfig{
			MaxChunkSize:        1900,
			EphemeralTTLSeconds: 60,
			FanoutConcurrency:   4,
			IdentityName:        "BabelRelay",
		},
		Translator: translate.Config{
			Provider: translate.ProviderDeepL,
		},
		Store: StoreConfig{
			Driver: store.DriverFile,
			Path:   defaultStatePath(),
		},
		Sweep: SweepConfig{
			Cron:  "0 * * * *",
			Limit: 100,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No file: defaults plus env overrides.
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "babelrelay-state"
	}
	return filepath.Join(home, ".babelrelay")
}
