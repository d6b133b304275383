package config

import "time"

// Settings is the resolved runtime configuration of the server.
type Settings struct {
	Port string

	DB    DBSettings
	Redis RedisSettings

	Gateway    GatewaySettings
	Webhook    WebhookSettings
	Settlement SettlementSettings
}

type DBSettings struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisSettings struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type GatewaySettings struct {
	BaseURL   string
	AppKey    string
	SecretKey string
	TestMode  bool
	Timeout   time.Duration

	// CallbackURL receives FreemoPay payment callbacks; withdrawals use CallbackURL + "/settlement".
	CallbackURL   string
	WebhookSecret string
}

type WebhookSettings struct {
	DefaultSecret  string
	Timeout        time.Duration
	RetryBaseDelay time.Duration
	MaxAttempts    int
	RetryInterval  time.Duration
}

type SettlementSettings struct {
	Queue          string
	QueueKey       string
	LinkLimit      int
	WorkerBackoff  time.Duration
	WorkerAttempts int
	MinimumAmount  int64
	// SweepInterval and StaleAfter drive the re-enqueue of settlements
	// stuck in pending.
	SweepInterval time.Duration
	StaleAfter    time.Duration
}

// Load reads every setting from the environment. Call LoadEnv first.
func Load() Settings {
	return Settings{
		Port: GetEnv("PORT", "5000"),
		DB: DBSettings{
			Host:            GetEnv("DB_HOST", "localhost"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "digipay"),
			Port:            GetEnv("DB_PORT", "5432"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisSettings{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		Gateway: GatewaySettings{
			BaseURL:       GetEnv("FREEMOPAY_API_BASE_URL", "https://api-v2.freemopay.com"),
			AppKey:        GetEnv("FREEMOPAY_APP_KEY", ""),
			SecretKey:     GetEnv("FREEMOPAY_SECRET_KEY", ""),
			TestMode:      GetBoolEnv("PAYMENT_TEST_MODE", false),
			Timeout:       GetDurationEnv("GATEWAY_TIMEOUT", 30*time.Second),
			CallbackURL:   GetEnv("WEBHOOK_CALLBACK_URL", "http://localhost:5000/api/webhooks/freemopay"),
			WebhookSecret: GetEnv("GATEWAY_WEBHOOK_SECRET", ""),
		},
		Webhook: WebhookSettings{
			DefaultSecret:  GetEnv("WEBHOOK_DEFAULT_SECRET", ""),
			Timeout:        GetDurationEnv("WEBHOOK_TIMEOUT", 10*time.Second),
			RetryBaseDelay: GetDurationEnv("WEBHOOK_RETRY_BASE_DELAY", 5*time.Minute),
			MaxAttempts:    GetIntEnv("WEBHOOK_MAX_ATTEMPTS", 5),
			RetryInterval:  GetDurationEnv("WEBHOOK_RETRY_INTERVAL", 30*time.Second),
		},
		Settlement: SettlementSettings{
			Queue:          GetEnv("SETTLEMENT_QUEUE", "redis"),
			QueueKey:       GetEnv("SETTLEMENT_QUEUE_KEY", "digipay:settlements"),
			LinkLimit:      GetIntEnv("SETTLEMENT_LINK_LIMIT", 100),
			WorkerBackoff:  GetDurationEnv("SETTLEMENT_WORKER_BACKOFF", 2*time.Second),
			WorkerAttempts: GetIntEnv("SETTLEMENT_WORKER_ATTEMPTS", 5),
			MinimumAmount:  GetInt64Env("SETTLEMENT_MINIMUM_AMOUNT", 10000),
			SweepInterval:  GetDurationEnv("SETTLEMENT_SWEEP_INTERVAL", time.Minute),
			StaleAfter:     GetDurationEnv("SETTLEMENT_STALE_AFTER", 5*time.Minute),
		},
	}
}
