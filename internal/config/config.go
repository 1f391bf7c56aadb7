// Package config loads the YAML configuration surface of §6 and
// translates it into the strongly-typed runtime configs each
// component expects, generalizing the teacher's configs/config.go split
// between a flat YAML document and per-component To*Config() methods.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/pbelltech0/solana-streamer/internal/arb"
	"github.com/pbelltech0/solana-streamer/internal/oracle"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
	"gopkg.in/yaml.v3"
)

// Config is the root YAML document.
type Config struct {
	RPC          string       `yaml:"rpc"`
	Transport    Transport    `yaml:"transport"`
	Arb          ArbYAML      `yaml:"arb"`
	Profit       ProfitYAML   `yaml:"profit"`
	Oracle       OracleYAML   `yaml:"oracle"`
	Orchestrator OrchYAML     `yaml:"orchestrator"`
	Database     DatabaseYAML `yaml:"database"`
}

// Transport names the pluggable EventSource/OraclePriceFeed adapter to
// wire at startup; the orchestrator itself is transport-agnostic (§6).
type Transport struct {
	Kind           string `yaml:"kind"` // "websocket" | "kafka"
	WebsocketURL   string `yaml:"websocket_url"`
	KafkaBrokers   []string `yaml:"kafka_brokers"`
	KafkaTopic     string `yaml:"kafka_topic"`
	OracleHTTPURL  string `yaml:"oracle_http_url"`
}

// ArbYAML mirrors the liquidity-gate and grid-search knobs of §6.
type ArbYAML struct {
	MinPerPoolLiq    float64 `yaml:"min_per_pool_liq"`
	MinCombinedLiq   float64 `yaml:"min_combined_liq"`
	MaxLoan          float64 `yaml:"max_loan"`
	GridSteps        int     `yaml:"grid_steps"`
	AllowSameVariant bool    `yaml:"allow_same_variant"`
	// FocusPairs is an optional priority subset for periodic rescans
	// (§5's focused/liquidity-weighted scan mode). Each entry is
	// "base_hex:quote_hex", two 0x-optional hex token ids separated by
	// a colon, e.g. "0x01:0x02".
	FocusPairs []string `yaml:"focus_pairs"`
}

// ProfitYAML mirrors the fee taxonomy and acceptance gates of §6/§4.4.
type ProfitYAML struct {
	MinNetProfitPct  float64 `yaml:"min_net_profit_pct"`
	MinProb          float64 `yaml:"min_prob"`
	MinEV            float64 `yaml:"min_ev"`
	FlashRate        float64 `yaml:"flash_rate"`
	SwapFeeOverride  *uint16 `yaml:"swap_fee_override"`
	GasLamports      int64   `yaml:"gas_lamports"`
	TipLamports      int64   `yaml:"tip_lamports"`
}

// OracleYAML mirrors the oracle validator's preset + overrides.
type OracleYAML struct {
	Preset          string  `yaml:"preset"` // strict | balanced | permissive
	MaxStalenessS   *int    `yaml:"max_staleness_s"`
	MaxConfPct      *float64 `yaml:"max_conf_pct"`
	MaxDeviationPct *float64 `yaml:"max_deviation_pct"`
	BothLegs        *bool   `yaml:"both_legs"`
}

// OrchYAML mirrors the stream orchestrator's cadence and backoff knobs.
type OrchYAML struct {
	ScanIntervalS        int `yaml:"scan_interval_s"`
	TTLS                 int `yaml:"ttl_s"`
	ReconnectBaseS       int `yaml:"reconnect_base_s"`
	ReconnectCapS        int `yaml:"reconnect_cap_s"`
	ReconnectMaxAttempts int `yaml:"reconnect_max_attempts"`
	HeartbeatTimeoutS    int `yaml:"heartbeat_timeout_s"`
	OutputChannelSize    int `yaml:"output_channel_size"`
	NMax                 int `yaml:"n_max"`
}

// DatabaseYAML configures the optional GORM/MySQL opportunity recorder.
type DatabaseYAML struct {
	DSN string `yaml:"dsn"`
}

// LoadConfig reads and parses a YAML config file, the same shape as
// the teacher's configs.LoadConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}

// OrchestratorTimings is the translated, time.Duration-typed subset of
// OrchYAML the stream orchestrator consumes directly.
type OrchestratorTimings struct {
	ScanInterval         time.Duration
	TTL                  time.Duration
	ReconnectBase        time.Duration
	ReconnectCap         time.Duration
	ReconnectMaxAttempts int
	HeartbeatTimeout     time.Duration
	OutputChannelSize    int
	NMax                 int
}

// ToOrchestratorTimings translates the YAML seconds fields into
// time.Duration, applying spec defaults for anything left at zero.
func (c *Config) ToOrchestratorTimings() OrchestratorTimings {
	o := c.Orchestrator
	t := OrchestratorTimings{
		ScanInterval:         durationOrDefault(o.ScanIntervalS, 7*time.Second),
		TTL:                  durationOrDefault(o.TTLS, 30*time.Second),
		ReconnectBase:        durationOrDefault(o.ReconnectBaseS, 2*time.Second),
		ReconnectCap:         durationOrDefault(o.ReconnectCapS, 60*time.Second),
		ReconnectMaxAttempts: o.ReconnectMaxAttempts,
		HeartbeatTimeout:     durationOrDefault(o.HeartbeatTimeoutS, 60*time.Second),
		OutputChannelSize:    o.OutputChannelSize,
		NMax:                 o.NMax,
	}
	if t.ReconnectMaxAttempts <= 0 {
		t.ReconnectMaxAttempts = 10
	}
	if t.OutputChannelSize <= 0 {
		t.OutputChannelSize = 256
	}
	if t.NMax <= 0 {
		t.NMax = 100
	}
	return t
}

// ToOracleConfig resolves the configured preset and layers any explicit
// overrides from OracleYAML on top of it.
func (c *Config) ToOracleConfig() oracle.Config {
	resolved := oracle.ResolvePreset(c.Oracle.Preset)
	if c.Oracle.MaxStalenessS != nil {
		resolved.MaxStaleness = time.Duration(*c.Oracle.MaxStalenessS) * time.Second
	}
	if c.Oracle.MaxConfPct != nil {
		resolved.MaxConfPct = *c.Oracle.MaxConfPct
	}
	if c.Oracle.MaxDeviationPct != nil {
		resolved.MaxDeviationPct = *c.Oracle.MaxDeviationPct
	}
	if c.Oracle.BothLegs != nil {
		resolved.BothLegs = *c.Oracle.BothLegs
	}
	return resolved
}

func durationOrDefault(seconds int, def time.Duration) time.Duration {
	if seconds <= 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

// ToArbConfig translates ArbYAML into arb.Config, decoding FocusPairs
// into poolstate.TokenPair values so the search stage's optional
// priority-subset scan mode (§5) is reachable from the YAML surface.
func (c *Config) ToArbConfig() (arb.Config, error) {
	cfg := arb.DefaultConfig()
	cfg.MinPerPoolLiq = c.Arb.MinPerPoolLiq
	cfg.MinCombinedLiq = c.Arb.MinCombinedLiq
	if c.Arb.MaxLoan > 0 {
		cfg.MaxLoan = c.Arb.MaxLoan
	}
	if c.Arb.GridSteps > 0 {
		cfg.GridSteps = c.Arb.GridSteps
	}
	cfg.AllowSameVariant = c.Arb.AllowSameVariant

	if len(c.Arb.FocusPairs) == 0 {
		return cfg, nil
	}
	pairs := make([]poolstate.TokenPair, 0, len(c.Arb.FocusPairs))
	for _, raw := range c.Arb.FocusPairs {
		base, quote, ok := strings.Cut(raw, ":")
		if !ok {
			return arb.Config{}, fmt.Errorf("config: focus_pairs entry %q must be \"base_hex:quote_hex\"", raw)
		}
		var baseID, quoteID poolstate.TokenId
		if err := hexIntoTokenId(base, baseID[:]); err != nil {
			return arb.Config{}, fmt.Errorf("config: focus_pairs base in %q: %w", raw, err)
		}
		if err := hexIntoTokenId(quote, quoteID[:]); err != nil {
			return arb.Config{}, fmt.Errorf("config: focus_pairs quote in %q: %w", raw, err)
		}
		pairs = append(pairs, poolstate.NewTokenPair(baseID, quoteID))
	}
	cfg.FocusPairs = pairs
	return cfg, nil
}

// hexIntoTokenId decodes a 0x-optional hex string into dst, right-aligned
// big-endian, mirroring transport/wsfeed's hexInto for the same shape of
// on-the-wire hex token/pool identifier.
func hexIntoTokenId(hexStr string, dst []byte) error {
	trimmed := strings.TrimPrefix(hexStr, "0x")
	if trimmed == "" {
		return fmt.Errorf("malformed hex token id %q", hexStr)
	}
	b, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return fmt.Errorf("malformed hex token id %q", hexStr)
	}
	bs := b.Bytes()
	if len(bs) > len(dst) {
		return fmt.Errorf("hex token id %q too long", hexStr)
	}
	copy(dst[len(dst)-len(bs):], bs)
	return nil
}
