package main

import (
	"context"

	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
)

// namedChecker adapts a bare health-check func to handlers.HealthChecker.
type namedChecker struct {
	name  string
	check func(ctx context.Context) error
}

func (c namedChecker) Name() string                    { return c.name }
func (c namedChecker) Check(ctx context.Context) error { return c.check(ctx) }

// toLogConfig translates the app-level log config into the logging
// package's shape.  The config layer says "text"; zap calls the same
// encoder "console".
func toLogConfig(cfg config.LogConfig) logging.LogConfig {
	format := cfg.Format
	if format == "text" {
		format = "console"
	}

	out := cfg.Output
	if out == "" {
		out = "stdout"
	}

	return logging.LogConfig{
		Level:            cfg.Level,
		Format:           format,
		OutputPaths:      []string{out},
		ErrorOutputPaths: []string{"stderr"},
	}
}
