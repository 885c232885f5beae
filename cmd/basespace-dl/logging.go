package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"basespace-dl/internal/config"
	"basespace-dl/internal/format"
)

const logLevelEnvKey = "BASESPACE_DL_LOG_LEVEL"

// configureLoggerForCLI installs the global zap logger. --verbose stands for
// --log-level=info when no explicit level is given.
func configureLoggerForCLI(w io.Writer, flagLevel string, verbose bool, configLevel string) (string, error) {
	if strings.TrimSpace(flagLevel) == "" && verbose {
		flagLevel = "info"
	}
	envLevel := os.Getenv(logLevelEnvKey)
	rawLevel, source := selectedLogLevel(flagLevel, envLevel, configLevel)
	if err := configureDefaultLogger(w, rawLevel); err != nil {
		if source == "flag" {
			return "", fmt.Errorf("invalid --log-level %q", flagLevel)
		}
		_ = configureDefaultLogger(w, "")
		switch source {
		case "env":
			return fmt.Sprintf("%s invalid %s=%q; defaulting to %s", format.WarningTag(), logLevelEnvKey, envLevel, config.DefaultLogLevel), nil
		case "config":
			return fmt.Sprintf("%s invalid log_level=%q; defaulting to %s", format.WarningTag(), configLevel, config.DefaultLogLevel), nil
		default:
			return "", nil
		}
	}
	return "", nil
}

func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, string) {
	if strings.TrimSpace(flagLevel) != "" {
		return flagLevel, "flag"
	}
	if strings.TrimSpace(envLevel) != "" {
		return envLevel, "env"
	}
	if strings.TrimSpace(configLevel) != "" {
		return configLevel, "config"
	}
	return "", "default"
}

func configureDefaultLogger(w io.Writer, rawLevel string) error {
	level, err := parseLogLevel(rawLevel)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(newLogger(w, level))
	return nil
}

func parseLogLevel(raw string) (zapcore.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		value = config.DefaultLogLevel
	}
	if value == "warning" {
		value = "warn"
	}

	level, err := zapcore.ParseLevel(value)
	if err != nil {
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	conf := zap.NewDevelopmentEncoderConfig()
	conf.TimeKey = ""
	conf.CallerKey = ""
	conf.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(conf), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core)
}
