package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	loadCounterOnce sync.Once
	loadCounter     metric.Int64Counter
)

// loadEvent is one config.validation.events data point.
type loadEvent struct {
	profile string
	outcome string
	class   string
}

func newLoadEvent(cfg *Config, err error) loadEvent {
	ev := loadEvent{profile: "unknown", outcome: "ok", class: "none"}
	if cfg != nil {
		ev.profile = profileLabel(cfg.Env)
	}
	if err != nil {
		ev.outcome = "error"
		ev.class = loadErrorClass(err)
	}
	return ev
}

func (ev loadEvent) record(ctx context.Context) {
	loadCounterOnce.Do(func() {
		c, err := otel.Meter("ezenity-api").Int64Counter("config.validation.events")
		if err == nil {
			loadCounter = c
		}
	})
	if loadCounter == nil {
		return
	}
	loadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", ev.profile),
		attribute.String("outcome", ev.outcome),
		attribute.String("error_class", ev.class),
	))
}

func profileLabel(env string) string {
	switch p := strings.ToLower(strings.TrimSpace(env)); p {
	case "":
		return "unknown"
	case "prod":
		return "production"
	case "dev":
		return "development"
	default:
		return p
	}
}

var (
	errEnvFile  = errors.New("env file")
	errParseEnv = errors.New("parse env")
	errValidate = errors.New("validate config")
)

func loadErrorClass(err error) string {
	switch {
	case errors.Is(err, errValidate):
		return "validation"
	case errors.Is(err, errParseEnv):
		return "parse"
	case errors.Is(err, errEnvFile):
		return "env_file"
	default:
		return "load"
	}
}
