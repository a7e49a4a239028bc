package logger

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLogger writes through zerolog. The zero value uses zerolog's global
// logger.
type DefaultLogger struct {
	Logger *zerolog.Logger
}

func (d *DefaultLogger) Error(err error, text, serviceName, sessionID string) {
	d.logger().Error().Err(err).Str("service", serviceName).Str("session", sessionID).Msg(text)
}

func (d *DefaultLogger) Info(text string, serviceName string, sessionID string) {
	d.logger().Info().Str("service", serviceName).Str("session", sessionID).Msg(text)
}

func (d *DefaultLogger) Debug(text string, serviceName string, sessionID string) {
	d.logger().Debug().Str("service", serviceName).Str("session", sessionID).Msg(text)
}

func (d *DefaultLogger) logger() *zerolog.Logger {
	if d == nil || d.Logger == nil {
		return &log.Logger
	}
	return d.Logger
}
