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
	Auth     AuthConfig     `mapstructure:"auth"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Channels ChannelsConfig `mapstructure:"channels"`
	Feed     FeedConfig     `mapstructure:"price_feed"`
	Timing   TimingConfig   `mapstructure:"timing"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
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

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type WebhookConfig struct {
	// Token is the shared secret webhook callers pass as ?token=.
	// Empty disables the check (dev only).
	Token string `mapstructure:"token"`
}

type QueueConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	// ClaimTimeout bounds how long a processing claim may be held before
	// the stale-claim sweep returns the row to pending.
	ClaimTimeout  time.Duration `mapstructure:"claim_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type DispatchConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffCap     time.Duration `mapstructure:"backoff_cap"`
	BreakerMaxFail uint32        `mapstructure:"breaker_max_failures"`
	BreakerCooloff time.Duration `mapstructure:"breaker_cooloff"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
	SMS      SMSConfig      `mapstructure:"sms"`
	Push     PushConfig     `mapstructure:"push"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type SMSConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Sender   string        `mapstructure:"sender"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type PushConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type FeedConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	Symbols       []string      `mapstructure:"symbols"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	WindowSeconds int           `mapstructure:"window_seconds"`
}

type TimingConfig struct {
	DecisionRetention time.Duration `mapstructure:"decision_retention"`
	RetentionSweep    string        `mapstructure:"retention_sweep"`
}

type RealtimeConfig struct {
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PP")
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
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("webhook.token", "")
	v.SetDefault("queue.poll_interval", "15s")
	v.SetDefault("queue.batch_size", 50)
	v.SetDefault("queue.claim_timeout", "5m")
	v.SetDefault("queue.sweep_interval", "1m")
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.backoff_base", "30s")
	v.SetDefault("dispatch.backoff_cap", "30m")
	v.SetDefault("dispatch.breaker_max_failures", 5)
	v.SetDefault("dispatch.breaker_cooloff", "60s")
	v.SetDefault("channels.telegram.enabled", false)
	v.SetDefault("channels.email.enabled", false)
	v.SetDefault("channels.email.port", 587)
	v.SetDefault("channels.sms.enabled", false)
	v.SetDefault("channels.sms.timeout", "10s")
	v.SetDefault("channels.push.enabled", false)
	v.SetDefault("channels.push.timeout", "10s")
	v.SetDefault("price_feed.enabled", true)
	v.SetDefault("price_feed.endpoint", "https://api.binance.com/api/v3/ticker/price")
	v.SetDefault("price_feed.symbols", []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	v.SetDefault("price_feed.poll_interval", "5s")
	v.SetDefault("price_feed.window_seconds", 300)
	v.SetDefault("timing.decision_retention", "720h")
	v.SetDefault("timing.retention_sweep", "@every 6h")
	v.SetDefault("realtime.subscriber_buffer", 32)

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
