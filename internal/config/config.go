package config

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"YieldStream/internal/alert"
	"YieldStream/internal/model"
)

// TierConfig is one rung of the claimable alert ladder.
type TierConfig struct {
	Label     string `yaml:"label"`
	Threshold string `yaml:"threshold"`
}

// Config holds all application configuration.
type Config struct {
	Chain struct {
		RPCURL            string        `yaml:"rpc_url"`
		RegistryAddress   string        `yaml:"registry_address"`
		StreamingAddress  string        `yaml:"streaming_address"`
		TokenDecimals     *int32        `yaml:"token_decimals"`
		PrivateKey        string        `yaml:"private_key"`
		ChainID           int64         `yaml:"chain_id"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
		TxTimeout         time.Duration `yaml:"tx_timeout"`
		MockTokens        int           `yaml:"mock_tokens"`
	} `yaml:"chain"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Metadata struct {
		Gateway  string        `yaml:"gateway"`
		RedisURL string        `yaml:"redis_url"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"metadata"`
	Watch struct {
		Streams      []uint64      `yaml:"streams"`
		Discover     bool          `yaml:"discover"`
		Owner        string        `yaml:"owner"`
		StateFile    string        `yaml:"state_file"`
		EndingWindow time.Duration `yaml:"ending_window"`
		Tiers        []TierConfig  `yaml:"tiers"`
	} `yaml:"watch"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		TickCron    string `yaml:"tick_cron"`
		SampleCron  string `yaml:"sample_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	API struct {
		Listen         string `yaml:"listen"`
		AllowedOrigins string `yaml:"allowed_origins"`
	} `yaml:"api"`
	Proxy string `yaml:"proxy"`
}

// LoadEnvFiles loads the .env files that exist, without overriding variables
// already set in the environment.
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("[WARN] load %s: %v", envFile, err)
			continue
		}
		log.Printf("[INFO] loaded environment from %s", envFile)
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func substituteEnvVars(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := envPattern.FindStringSubmatch(match)
		if v := os.Getenv(sub[1]); v != "" {
			return v
		}
		return sub[2]
	})
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"RPC_URL":            &c.Chain.RPCURL,
		"REGISTRY_ADDRESS":   &c.Chain.RegistryAddress,
		"STREAMING_ADDRESS":  &c.Chain.StreamingAddress,
		"PRIVATE_KEY":        &c.Chain.PrivateKey,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"IPFS_GATEWAY":       &c.Metadata.Gateway,
		"REDIS_URL":          &c.Metadata.RedisURL,
		"WATCH_OWNER":        &c.Watch.Owner,
		"WATCH_STATE_FILE":   &c.Watch.StateFile,
		"CRON_REFRESH":       &c.Schedule.RefreshCron,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"API_LISTEN":         &c.API.Listen,
		"HTTPS_PROXY":        &c.Proxy,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHAIN_ID: %w", err)
		}
		c.Chain.ChainID = id
	}
	if v := os.Getenv("WATCH_STREAMS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("WATCH_STREAMS: %w", err)
		}
		c.Watch.Streams = ids
	}
	if v := os.Getenv("WATCH_DISCOVER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WATCH_DISCOVER: %w", err)
		}
		c.Watch.Discover = b
	}
	return nil
}

func parseIDs(s string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid stream id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) applyDefaults() {
	if c.Chain.TokenDecimals == nil {
		d := int32(18)
		c.Chain.TokenDecimals = &d
	}
	if c.Chain.RequestsPerSecond == 0 {
		c.Chain.RequestsPerSecond = 10
	}
	if c.Chain.Burst == 0 {
		c.Chain.Burst = 5
	}
	if c.Chain.TxTimeout == 0 {
		c.Chain.TxTimeout = 2 * time.Minute
	}
	if c.Chain.MockTokens == 0 {
		c.Chain.MockTokens = 8
	}
	if c.Metadata.CacheTTL == 0 {
		c.Metadata.CacheTTL = time.Hour
	}
	if len(c.Watch.Streams) == 0 && !c.Watch.Discover {
		c.Watch.Discover = true
	}
	if c.Watch.StateFile == "" {
		c.Watch.StateFile = "data/watch_state.json"
	}
	if c.Watch.EndingWindow == 0 {
		c.Watch.EndingWindow = 24 * time.Hour
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "*/15 * * * * *"
	}
	if c.Schedule.TickCron == "" {
		c.Schedule.TickCron = "* * * * * *"
	}
	if c.Schedule.SampleCron == "" {
		c.Schedule.SampleCron = "0 */5 * * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/yieldstream.db"
	}
}

// UsesChain reports whether a real RPC endpoint is configured. Without one
// the monitor runs against the in-memory mock registry.
func (c *Config) UsesChain() bool { return c.Chain.RPCURL != "" }

// Decimals returns the token decimals; an explicit 0 is kept.
func (c *Config) Decimals() int32 {
	if c.Chain.TokenDecimals == nil {
		return 18
	}
	return *c.Chain.TokenDecimals
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Thresholds builds the alert thresholds, falling back to the default tiers.
func (c *Config) Thresholds() (alert.Thresholds, error) {
	th := alert.Thresholds{EndingWindow: c.Watch.EndingWindow}
	if len(c.Watch.Tiers) == 0 {
		th.Tiers = alert.DefaultTiers
		return th, nil
	}
	for i, t := range c.Watch.Tiers {
		d, err := decimal.NewFromString(t.Threshold)
		if err != nil {
			return th, fmt.Errorf("watch.tiers[%d].threshold: %w", i, err)
		}
		label := t.Label
		if label == "" {
			label = t.Threshold
		}
		th.Tiers = append(th.Tiers, model.ClaimableTier{Label: label, Threshold: d})
	}
	alert.SortTiers(th.Tiers)
	return th, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.UsesChain() {
		if !common.IsHexAddress(c.Chain.RegistryAddress) {
			return fmt.Errorf("chain.registry_address must be a hex address")
		}
		if !common.IsHexAddress(c.Chain.StreamingAddress) {
			return fmt.Errorf("chain.streaming_address must be a hex address")
		}
	}
	if d := c.Decimals(); d < 0 || d > 36 {
		return fmt.Errorf("chain.token_decimals must be within 0~36")
	}
	if c.Chain.RequestsPerSecond < 0 {
		return fmt.Errorf("chain.requests_per_second must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Watch.Owner != "" && !common.IsHexAddress(c.Watch.Owner) {
		return fmt.Errorf("watch.owner must be a hex address")
	}
	if c.Watch.EndingWindow < 0 {
		return fmt.Errorf("watch.ending_window must not be negative")
	}
	if _, err := c.Thresholds(); err != nil {
		return err
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.refresh_cron": c.Schedule.RefreshCron,
		"schedule.tick_cron":    c.Schedule.TickCron,
		"schedule.sample_cron":  c.Schedule.SampleCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
