package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	API     APIConfig
	QR      QRConfig
	Sched   SchedConfig
	Redis   RedisConfig
	DB      DBConfig
	Notify  NotifyConfig
	Server  ServerConfig
	Tracing TracingConfig
	Log     LogConfig
}

type APIConfig struct {
	PayBaseURL    string
	WebAppBaseURL string
	AppBaseURL    string
	DeviceID      string
	SessionToken  string
}

type QRConfig struct {
	// Window is how long one issued code stays valid. The remote treats
	// codes as single-use and time-boxed; 120s matches its behavior.
	Window       time.Duration
	TickInterval time.Duration
}

type SchedConfig struct {
	ForegroundInterval time.Duration
	BackgroundDeadline time.Duration
}

type RedisConfig struct {
	URL string
}

type DBConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type NotifyConfig struct {
	// Enabled is the startup value for the feed-notification toggle. The
	// stored toggle wins unless NOTIFY_ENABLED is set explicitly.
	Enabled    bool
	WebhookURL string
	Cooldown   time.Duration
}

type ServerConfig struct {
	HealthPort int
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			PayBaseURL:    getEnv("XFB_PAY_BASE_URL", "https://pay.xiaofubao.com"),
			WebAppBaseURL: getEnv("XFB_WEBAPP_BASE_URL", "https://webapp.xiaofubao.com"),
			AppBaseURL:    getEnv("XFB_APP_BASE_URL", "https://application.xiaofubao.com"),
			DeviceID:      getEnv("XFB_DEVICE_ID", "1234567890"),
			SessionToken:  getEnv("XFB_SESSION_TOKEN", ""),
		},
		QR: QRConfig{
			Window:       time.Duration(getEnvInt("QR_WINDOW_SEC", 120)) * time.Second,
			TickInterval: time.Duration(getEnvInt("QR_TICK_MS", 1000)) * time.Millisecond,
		},
		Sched: SchedConfig{
			ForegroundInterval: time.Duration(getEnvInt("FOREGROUND_INTERVAL_SEC", 120)) * time.Second,
			BackgroundDeadline: time.Duration(getEnvInt("BACKGROUND_DEADLINE_SEC", 25)) * time.Second,
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		DB: DBConfig{
			URL:             getEnv("DB_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		},
		Notify: NotifyConfig{
			Enabled:    getEnvBool("NOTIFY_ENABLED", true),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Cooldown:   time.Duration(getEnvInt("NOTIFY_COOLDOWN_SEC", 60)) * time.Second,
		},
		Server: ServerConfig{
			HealthPort: getEnvInt("HEALTH_PORT", 8080),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvBool("TRACING_ENABLED", false),
			Endpoint: getEnv("TRACING_ENDPOINT", ""),
			Insecure: getEnvBool("TRACING_INSECURE", true),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.API.WebAppBaseURL == "" {
		return fmt.Errorf("XFB_WEBAPP_BASE_URL is required")
	}
	if c.API.PayBaseURL == "" {
		return fmt.Errorf("XFB_PAY_BASE_URL is required")
	}
	if c.QR.Window <= 0 {
		return fmt.Errorf("QR_WINDOW_SEC must be positive")
	}
	if c.QR.TickInterval <= 0 {
		return fmt.Errorf("QR_TICK_MS must be positive")
	}
	if c.Sched.ForegroundInterval <= 0 {
		return fmt.Errorf("FOREGROUND_INTERVAL_SEC must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
