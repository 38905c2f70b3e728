// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading       TradingConfig      `mapstructure:"trading"`
	Risk          RiskConfig         `mapstructure:"risk"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Strategies    []StrategyConfig   `mapstructure:"strategies"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds session-wide trading configuration.
type TradingConfig struct {
	Mode            string `mapstructure:"mode"`             // "live", "paper"
	DefaultExchange string `mapstructure:"default_exchange"` // NSE, BSE
	CandleCapacity  int    `mapstructure:"candle_capacity"`  // max finalized candles retained per instrument
	BackfillDays    int    `mapstructure:"backfill_days"`
}

// RiskConfig holds risk management configuration.
type RiskConfig struct {
	MaxDailyLoss    float64 `mapstructure:"max_daily_loss"`   // signed, typically negative
	MaxDailyProfit  float64 `mapstructure:"max_daily_profit"` // positive
	HaltOnLimit     bool    `mapstructure:"halt_on_limit"`
	CooldownMinutes int     `mapstructure:"cooldown_minutes"` // per-instrument re-entry cooldown
}

// IndicatorToggle configures one optional indicator.
type IndicatorToggle struct {
	Enabled bool `mapstructure:"enabled"`
	Period  int  `mapstructure:"period"`
}

// StrategyConfig holds one strategy variant. Several near-identical
// variants run side by side, differing only in these parameters.
type StrategyConfig struct {
	Name             string  `mapstructure:"name"`
	Underlying       string  `mapstructure:"underlying"`
	Exchange         string  `mapstructure:"exchange"`
	IntervalMinutes  int     `mapstructure:"interval_minutes"`
	ProximityPct     float64 `mapstructure:"proximity_pct"`  // touch band, percent of LTP
	MergeBandPct     float64 `mapstructure:"merge_band_pct"` // pivot zone merge band
	ReactionLookback int     `mapstructure:"reaction_lookback"`
	MinReactions     int     `mapstructure:"min_reactions"` // 1 = every-touch variant
	MaxLevels        int     `mapstructure:"max_levels"`
	TradeSupports    bool    `mapstructure:"trade_supports"`    // buy CE on support retest
	TradeResistances bool    `mapstructure:"trade_resistances"` // buy PE on resistance retest
	OptionMapped     bool    `mapstructure:"option_mapped"`     // trade ATM options of the underlying
	ExpiryPreference string  `mapstructure:"expiry_preference"` // "weekly" or "monthly"
	EntryPolicy      string  `mapstructure:"entry_policy"`      // "close" or "option_band"
	Lots             int     `mapstructure:"lots"`

	StopATRMult       float64   `mapstructure:"stop_atr_mult"`
	TargetATRMults    []float64 `mapstructure:"target_atr_mults"` // one or two ordered targets
	ActivationATRMult float64   `mapstructure:"activation_atr_mult"`
	TrailATRMult      float64   `mapstructure:"trail_atr_mult"`
	CooldownMinutes   int       `mapstructure:"cooldown_minutes"` // per-level re-touch cooldown

	RSI              IndicatorToggle `mapstructure:"rsi"`
	ATR              IndicatorToggle `mapstructure:"atr"`
	BollingerPeriod  int             `mapstructure:"bollinger_period"`
	BollingerStdDev  float64         `mapstructure:"bollinger_stddev"`
	TickCadence      bool            `mapstructure:"tick_cadence"` // recompute ATR/Bollinger per tick
	ConfirmTimeoutSc int             `mapstructure:"confirm_timeout_seconds"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram notification and command configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// Credentials holds API credentials.
type Credentials struct {
	Zerodha ZerodhaCredentials `mapstructure:"zerodha"`
}

// ZerodhaCredentials holds Zerodha API credentials. The access token is
// generated out of band (daily login flow) and supplied here or via env.
type ZerodhaCredentials struct {
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	AccessToken string `mapstructure:"access_token"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/kite-levels-trader"
	}
	return filepath.Join(home, ".config", "kite-levels-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZERODHA_API_KEY"); v != "" {
		cfg.Credentials.Zerodha.APIKey = v
	}
	if v := os.Getenv("ZERODHA_API_SECRET"); v != "" {
		cfg.Credentials.Zerodha.APISecret = v
	}
	if v := os.Getenv("ZERODHA_ACCESS_TOKEN"); v != "" {
		cfg.Credentials.Zerodha.AccessToken = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Trading.Mode == "" {
		cfg.Trading.Mode = "paper"
	}
	if cfg.Trading.DefaultExchange == "" {
		cfg.Trading.DefaultExchange = "NSE"
	}
	if cfg.Trading.CandleCapacity == 0 {
		cfg.Trading.CandleCapacity = 100
	}
	if cfg.Trading.BackfillDays == 0 {
		cfg.Trading.BackfillDays = 5
	}
	if cfg.Risk.CooldownMinutes == 0 {
		cfg.Risk.CooldownMinutes = 15
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	for i := range cfg.Strategies {
		s := &cfg.Strategies[i]
		if s.Exchange == "" {
			s.Exchange = cfg.Trading.DefaultExchange
		}
		if s.IntervalMinutes == 0 {
			s.IntervalMinutes = 15
		}
		if s.ProximityPct == 0 {
			s.ProximityPct = 0.2
		}
		if s.MergeBandPct == 0 {
			s.MergeBandPct = 0.5
		}
		if s.ReactionLookback == 0 {
			s.ReactionLookback = 3
		}
		if s.MinReactions == 0 {
			s.MinReactions = 2
		}
		if s.MaxLevels == 0 {
			s.MaxLevels = 3
		}
		if s.ExpiryPreference == "" {
			s.ExpiryPreference = "weekly"
		}
		if s.EntryPolicy == "" {
			s.EntryPolicy = "close"
		}
		if s.Lots == 0 {
			s.Lots = 1
		}
		if s.StopATRMult == 0 {
			s.StopATRMult = 1.5
		}
		if len(s.TargetATRMults) == 0 {
			s.TargetATRMults = []float64{1.0, 2.0}
		}
		if s.ActivationATRMult == 0 {
			s.ActivationATRMult = 1.0
		}
		if s.TrailATRMult == 0 {
			s.TrailATRMult = 0.5
		}
		if s.CooldownMinutes == 0 {
			s.CooldownMinutes = 15
		}
		if s.RSI.Period == 0 {
			s.RSI.Period = 14
		}
		if s.ATR.Period == 0 {
			s.ATR.Period = 14
		}
		if s.BollingerPeriod == 0 {
			s.BollingerPeriod = 20
		}
		if s.BollingerStdDev == 0 {
			s.BollingerStdDev = 2.0
		}
		if s.ConfirmTimeoutSc == 0 {
			s.ConfirmTimeoutSc = 30
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}
	if c.Risk.MaxDailyLoss > 0 {
		return fmt.Errorf("max_daily_loss must be zero or negative (signed)")
	}
	if c.Risk.MaxDailyProfit < 0 {
		return fmt.Errorf("max_daily_profit must be zero or positive")
	}

	names := make(map[string]bool)
	for _, s := range c.Strategies {
		if s.Name == "" {
			return fmt.Errorf("strategy name is required")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate strategy name: %s", s.Name)
		}
		names[s.Name] = true
	}

	return nil
}

// ValidateStrategy validates a single strategy variant. Failures here
// are fatal for the variant only, never for its siblings.
func (c *Config) ValidateStrategy(s StrategyConfig) error {
	if s.Underlying == "" {
		return fmt.Errorf("strategy %s: underlying is required", s.Name)
	}
	if !s.TradeSupports && !s.TradeResistances {
		return fmt.Errorf("strategy %s: at least one of trade_supports/trade_resistances must be set", s.Name)
	}
	if s.ProximityPct <= 0 || s.ProximityPct > 5 {
		return fmt.Errorf("strategy %s: proximity_pct out of range (0, 5]", s.Name)
	}
	if len(s.TargetATRMults) > 2 {
		return fmt.Errorf("strategy %s: at most two targets supported", s.Name)
	}
	if s.EntryPolicy != "close" && s.EntryPolicy != "option_band" {
		return fmt.Errorf("strategy %s: entry_policy must be 'close' or 'option_band'", s.Name)
	}
	if s.EntryPolicy == "option_band" && !s.OptionMapped {
		return fmt.Errorf("strategy %s: entry_policy 'option_band' requires option_mapped", s.Name)
	}
	if s.ExpiryPreference != "weekly" && s.ExpiryPreference != "monthly" {
		return fmt.Errorf("strategy %s: expiry_preference must be 'weekly' or 'monthly'", s.Name)
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}
