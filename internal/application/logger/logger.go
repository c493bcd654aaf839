package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

type Backend string

const (
	BackendStd Backend = "std"
	BackendZap Backend = "zap"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

func ParseEnv(raw string) Env {
	switch raw {
	case "prod", "production":
		return EnvProd
	case "stage", "staging":
		return EnvStage
	default:
		return EnvDev
	}
}

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Env       Env
	Backend   Backend
	Debug     bool
	AddSource bool

	// Sampling для zap
	SampleInitial    int
	SampleThereafter int
}

// New собирает slog.Logger с общими атрибутами сервиса.
// std пишет текст в dev и JSON в остальных средах, zap всегда JSON.
func New(cfg Config) *slog.Logger {
	if cfg.Service == "" {
		cfg.Service = "juketogether"
	}
	if cfg.Env == "" {
		cfg.Env = EnvDev
	}
	if cfg.InstanceID == "" {
		hn, _ := os.Hostname()
		cfg.InstanceID = hn + "-" + uuid.New().String()[:8]
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	return slog.New(h.WithAttrs([]slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
		slog.Time("started_at", time.Now()),
	}))
}

func level(cfg Config) slog.Level {
	if cfg.Debug {
		return slog.LevelDebug
	}

	return slog.LevelInfo
}

func newStdHandler(cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level(cfg),
		AddSource: cfg.AddSource,
	}

	if cfg.Env == EnvDev {
		return slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.NewJSONHandler(os.Stdout, opts)
}
