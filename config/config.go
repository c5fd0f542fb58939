package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BurstFinance/burst/core/amount"
)

type Config struct {
	// Node configuration
	DataDir  string `json:"data_dir" yaml:"data_dir"`
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Ledger engine configuration
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// API configuration
	API APIConfig `json:"api" yaml:"api"`
}

type EngineConfig struct {
	// Owner is the 0x address holding the owner role. When empty the
	// daemon derives a deterministic development owner key at startup.
	Owner string `json:"owner" yaml:"owner"`

	// SlotCount is the fixed number of purchasable slots in the market.
	SlotCount int `json:"slot_count" yaml:"slot_count"`

	// BasePrice is the initial price of every slot, in base units.
	BasePrice amount.Amount `json:"base_price" yaml:"base_price"`

	// Assets lists the external asset ids accepted for staking.
	Assets []string `json:"assets" yaml:"assets"`
}

type APIConfig struct {
	Addr         string        `json:"addr" yaml:"addr"`
	EnableCORS   bool          `json:"enable_cors" yaml:"enable_cors"`
	RateLimit    float64       `json:"rate_limit" yaml:"rate_limit"`
	RateBurst    int           `json:"rate_burst" yaml:"rate_burst"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// Load returns the default configuration.
func Load() (*Config, error) {
	basePrice, err := amount.FromTokens(10)
	if err != nil {
		return nil, err
	}

	return &Config{
		DataDir:  "./data",
		LogLevel: "info",
		Engine: EngineConfig{
			SlotCount: 100,
			BasePrice: basePrice,
		},
		API: APIConfig{
			Addr:         ":8545",
			EnableCORS:   true,
			RateLimit:    100, // requests per second
			RateBurst:    200,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}, nil
}

// LoadFile loads a YAML configuration file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %v", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.SlotCount <= 0 {
		return fmt.Errorf("engine.slot_count must be positive, got %d", c.Engine.SlotCount)
	}
	if c.Engine.BasePrice == 0 {
		return fmt.Errorf("engine.base_price must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	return nil
}
