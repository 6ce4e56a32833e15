// internal/app/bootstrap/logger.go
package bootstrap

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds a JSON production logger for "prod" and a console
// development logger for anything else.
func NewLogger(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build(zap.Fields(zap.String("app", "exposite")))
}
