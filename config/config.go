package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger          `mapstructure:"logger"`
	DB        Database        `mapstructure:"database"`
	API       API             `mapstructure:"api"`
	Calendar  Calendar        `mapstructure:"calendar"`
	Feed      Feed            `mapstructure:"feed"`
	Backtest  Backtest        `mapstructure:"backtest"`
	Consensus Consensus       `mapstructure:"consensus"`
	Cache     Cache           `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port int `mapstructure:"port"`
}

// Calendar configures the external holiday provider used to resolve trading days.
type Calendar struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Market  string        `mapstructure:"market"`
}

// Feed configures the price/vote collaborator.
type Feed struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
	BearerToken      string        `mapstructure:"bearer_token"`
}

type Backtest struct {
	MaxConcurrentRuns  int    `mapstructure:"max_concurrent_runs"`
	MaxConsecutiveGaps int    `mapstructure:"max_consecutive_gaps"`
	RecordHoldDays     bool   `mapstructure:"record_hold_days"`
	OutputDir          string `mapstructure:"output_dir"`
}

type Consensus struct {
	// TieBreak is the action taken when no vote has a strict majority.
	// One of BUY, SELL, HOLD. Defaults to HOLD.
	TieBreak string `mapstructure:"tie_break"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type SchedulerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	CronExpression string   `mapstructure:"cron_expression"`
	Universe       []string `mapstructure:"universe"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("calendar.timeout", 10*time.Second)
	viper.SetDefault("calendar.market", "KRX")
	viper.SetDefault("feed.timeout", 10*time.Second)
	viper.SetDefault("feed.max_request_per_min", 60)
	viper.SetDefault("backtest.max_concurrent_runs", 8)
	viper.SetDefault("backtest.max_consecutive_gaps", 5)
	viper.SetDefault("backtest.record_hold_days", false)
	viper.SetDefault("backtest.output_dir", "output")
	viper.SetDefault("consensus.tie_break", "HOLD")
	viper.SetDefault("cache.default_expiration", 24*time.Hour)
	viper.SetDefault("cache.cleanup_interval", time.Hour)
}
