// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCEndpoint string `mapstructure:"rpc_endpoint"`
	FeeEndpoint string `mapstructure:"fee_endpoint"`
	// FeeAccount is the reference program account used for the
	// priority-fee percentile query.
	FeeAccount     string  `mapstructure:"fee_account"`
	FeeLastNBlocks int     `mapstructure:"fee_last_n_blocks"`
	WalletsFile    string  `mapstructure:"wallets_file"`
	Slippage       float64 `mapstructure:"slippage"`
	MaxFeeFraction float64 `mapstructure:"max_fee_fraction"`
	ComputeMargin  float64 `mapstructure:"compute_margin"`
	FeeLevel       string  `mapstructure:"fee_level"`
	Simulate       bool    `mapstructure:"simulate"`
	ReQuote        bool    `mapstructure:"re_quote"`
	// WaitForBlock waits out the full blockhash validity window before
	// giving a verdict. Disabling it trades certainty for latency.
	WaitForBlock bool `mapstructure:"wait_for_block"`
	Finalize     bool `mapstructure:"finalize"`
	DebugLogging   bool    `mapstructure:"debug_logging"`
	LogFile        string  `mapstructure:"log_file"`
}

const (
	DefaultSlippage       = 0.5
	DefaultMaxFeeFraction = 0.05
	DefaultComputeMargin  = 0.10
	DefaultFeeLevel       = "high"
	DefaultFeeLastN       = 100
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"slippage":          DefaultSlippage,
		"max_fee_fraction":  DefaultMaxFeeFraction,
		"compute_margin":    DefaultComputeMargin,
		"fee_level":         DefaultFeeLevel,
		"fee_last_n_blocks": DefaultFeeLastN,
		"simulate":          true,
		"wait_for_block":    true,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCEndpoint == "" {
		return errors.New("missing rpc_endpoint in configuration")
	}
	if err := validateURLWithCache(cfg.RPCEndpoint, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if cfg.FeeEndpoint != "" {
		if err := validateURLWithCache(cfg.FeeEndpoint, "http"); err != nil {
			return errors.New("invalid fee endpoint URL protocol")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Slippage <= 0 || cfg.Slippage > 100 {
		return errors.New("invalid slippage")
	}
	if cfg.MaxFeeFraction <= 0 || cfg.MaxFeeFraction >= 1 {
		return errors.New("invalid max_fee_fraction")
	}
	if cfg.ComputeMargin < 0 || cfg.ComputeMargin > 1 {
		return errors.New("invalid compute_margin")
	}
	if cfg.FeeLastNBlocks <= 0 {
		return errors.New("invalid fee_last_n_blocks")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SOLKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if endpoint := v.GetString("RPC_ENDPOINT"); endpoint != "" {
		cfg.RPCEndpoint = endpoint
	}
	if endpoint := v.GetString("FEE_ENDPOINT"); endpoint != "" {
		cfg.FeeEndpoint = endpoint
	}
	return nil
}
