package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	PriceRun PriceRunConfig `mapstructure:"price_run"`
	Notifier NotifierConfig `mapstructure:"notifier"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// CronConfig carries the AM/PM session schedules. The scheduler only decides
// when a session run fires; the engine treats the session itself as an opaque
// parameter.
type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	AMRun   string `mapstructure:"am_run"`
	PMRun   string `mapstructure:"pm_run"`
}

type GatewayConfig struct {
	URL            string        `mapstructure:"url"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
}

type PriceRunConfig struct {
	// SnapshotWait bounds how long a snapshot subscription gets to populate
	// before its quote is read.
	SnapshotWait time.Duration `mapstructure:"snapshot_wait"`
	// PaceInterval is the courtesy delay between instruments within a run.
	PaceInterval time.Duration `mapstructure:"pace_interval"`
}

type NotifierConfig struct {
	Kind     string         `mapstructure:"kind"` // log | telegram
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	// Weekdays, US market hours: shortly after the open and before the close.
	v.SetDefault("cron.am_run", "0 45 9 * * 1-5")
	v.SetDefault("cron.pm_run", "0 30 15 * * 1-5")
	v.SetDefault("gateway.url", "ws://localhost:7497/stream")
	v.SetDefault("gateway.resolve_timeout", "10s")
	v.SetDefault("price_run.snapshot_wait", "2s")
	v.SetDefault("price_run.pace_interval", "500ms")
	v.SetDefault("notifier.kind", "log")
	v.SetDefault("notifier.telegram.token", "")
	v.SetDefault("notifier.telegram.chat_id", 0)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
