package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"3000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`
	Domain     string `env:"DOMAIN" envDefault:"http://localhost:3000"`
	JWTSecret  string `env:"JWT_SECRET,required"`

	// PaymentsSecret - общий с платёжным шлюзом ключ подписи квитанций
	PaymentsSecret string `env:"PAYMENTS_SECRET,required"`

	Logging  LoggingConfig
	Postgres PostgresConfig
	Valkey   ValkeyConfig
	Engine   EngineConfig
}

type LoggingConfig struct {
	Env       string `env:"LOG_ENV" envDefault:"dev"`
	Backend   string `env:"LOG_BACKEND" envDefault:"std"`
	Version   string `env:"LOG_VERSION" envDefault:"v0.1.0"`
	Debug     bool   `env:"LOG_LEVEL_DEBUG" envDefault:"false"`
	AddSource bool   `env:"LOG_ADD_SOURCE" envDefault:"false"`
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"juketogether"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

// ValkeyConfig - если Addr пустой, индекс коротких кодов живёт в памяти
type ValkeyConfig struct {
	Addr     string `env:"VALKEY_ADDR"`
	Password string `env:"VALKEY_PASSWORD"`
	Prefix   string `env:"VALKEY_PREFIX" envDefault:"juke:shortcode:"`
}

// EngineConfig - параметры движка комнат
type EngineConfig struct {
	RoomIdleTTL        time.Duration `env:"ENGINE_ROOM_IDLE_TTL" envDefault:"10m"`
	EvictInterval      time.Duration `env:"ENGINE_EVICT_INTERVAL" envDefault:"1m"`
	BoostDuration      time.Duration `env:"ENGINE_BOOST_DURATION" envDefault:"1h"`
	BoostSweepInterval time.Duration `env:"ENGINE_BOOST_SWEEP_INTERVAL" envDefault:"5s"`
	PreviousWindow     time.Duration `env:"ENGINE_PREVIOUS_WINDOW" envDefault:"2s"`
	MetadataTimeout    time.Duration `env:"ENGINE_METADATA_TIMEOUT" envDefault:"2s"`
	AnalysisTimeout    time.Duration `env:"ENGINE_ANALYSIS_TIMEOUT" envDefault:"30s"`
	HistoryTail        int           `env:"ENGINE_HISTORY_TAIL" envDefault:"50"`
	CommandBuffer      int           `env:"ENGINE_COMMAND_BUFFER" envDefault:"64"`
	SendBuffer         int           `env:"ENGINE_SEND_BUFFER" envDefault:"256"`

	FreeQueueLimit     int `env:"ENGINE_TIER_FREE_QUEUE_LIMIT" envDefault:"1"`
	StandardQueueLimit int `env:"ENGINE_TIER_STANDARD_QUEUE_LIMIT" envDefault:"10"`
	FreeAdEvery        int `env:"ENGINE_FREE_AD_EVERY" envDefault:"1"`
	StandardAdEvery    int `env:"ENGINE_STANDARD_AD_EVERY" envDefault:"2"`

	AdCreatives []string `env:"ENGINE_AD_CREATIVES" envSeparator:","`
}

func (e *EngineConfig) validate() error {
	if e.RoomIdleTTL <= 0 || e.EvictInterval <= 0 {
		return errors.New("room idle ttl and evict interval must be positive")
	}
	if e.BoostDuration <= 0 || e.BoostSweepInterval <= 0 {
		return errors.New("boost duration and sweep interval must be positive")
	}
	if e.PreviousWindow <= 0 {
		return errors.New("previous window must be positive")
	}
	if e.FreeQueueLimit < 0 || e.StandardQueueLimit < 0 {
		return errors.New("queue limits must not be negative")
	}
	if e.FreeAdEvery < 0 || e.StandardAdEvery < 0 {
		return errors.New("ad cadence must not be negative")
	}
	if e.CommandBuffer <= 0 || e.SendBuffer <= 0 {
		return errors.New("buffers must be positive")
	}

	return nil
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err = c.Engine.validate(); err != nil {
		return nil, fmt.Errorf("validate engine config: %w", err)
	}

	return &c, nil
}
