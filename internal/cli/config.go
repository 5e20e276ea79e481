package cli

import (
	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/logging"
)

// GlobalOptions are shared flags that apply across commands.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Quiet      bool
}

var globalOpts = GlobalOptions{}

const serviceName = "synheart-stress"

// loadConfig reads the config file and environment, then applies the global
// log flags. Command flags are applied by the caller, which must call
// Validate again afterwards.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(globalOpts.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if globalOpts.LogLevel != "" {
		cfg.Log.Level = globalOpts.LogLevel
	}
	if globalOpts.LogFormat != "" {
		cfg.Log.Format = globalOpts.LogFormat
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	return logging.New(cfg.Level, cfg.Format, serviceName)
}

// newCLILogger is used by the client-side commands, which default to
// readable console output rather than JSON.
func newCLILogger() (*zap.Logger, error) {
	level, format := "info", "console"
	if globalOpts.LogLevel != "" {
		level = globalOpts.LogLevel
	}
	if globalOpts.LogFormat != "" {
		format = globalOpts.LogFormat
	}
	return logging.New(level, format, serviceName)
}
