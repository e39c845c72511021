package main

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/shimmeringbee/infragate/config"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/filter"
	"github.com/shimmeringbee/logwrap/impl/golog"
	"github.com/shimmeringbee/logwrap/impl/tee"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"log"
	"os"
	"path/filepath"
)

func loadLoggingConfigurations(dir string, l logwrap.Logger) ([]config.LoggingConfig, error) {
	files, err := readConfigurationFiles(dir, ".json")
	if err != nil {
		return nil, err
	}

	var logCfg []config.LoggingConfig

	for _, file := range files {
		cfg := config.LoggingConfig{Name: file.Name}

		if err := json.Unmarshal(file.Data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse logging configuration file '%s': %w", file.Path, err)
		}

		l.LogInfo(context.Background(), "Loaded logging configuration.", logwrap.Datum("name", cfg.Name), logwrap.Datum("type", cfg.Type))
		logCfg = append(logCfg, cfg)
	}

	return logCfg, nil
}

// configureLogging replaces the bootstrap logger with the configured outputs, the bootstrap logger is
// returned unchanged if nothing is configured.
func configureLogging(cfgDir string, logDir string, l logwrap.Logger) (logwrap.Logger, error) {
	logCfg, err := loadLoggingConfigurations(cfgDir, l)
	if err != nil {
		return l, err
	}

	var impls []logwrap.Impl

	for _, cfg := range logCfg {
		var logWriter io.Writer

		switch lCfg := cfg.Config.(type) {
		case *config.StdoutLogging:
			logWriter = os.Stderr
		case *config.FileLogging:
			outFile := filepath.Join(logDir, lCfg.Filename)

			logWriter = &lumberjack.Logger{
				Filename:   outFile,
				MaxSize:    lCfg.Size,
				MaxBackups: lCfg.Count,
				MaxAge:     lCfg.MaxAge,
				Compress:   lCfg.Compress,
			}
		}

		impl, err := constructFilter(cfg.Base(), golog.Wrap(log.New(logWriter, "", log.LstdFlags)))
		if err != nil {
			return l, fmt.Errorf("failed to construct filter for logging '%s': %w", cfg.Name, err)
		}

		impls = append(impls, impl)

		l.LogInfo(context.Background(), "Constructed logging.", logwrap.Datum("name", cfg.Name), logwrap.Datum("type", cfg.Type))
	}

	if len(impls) == 0 {
		l.LogWarn(context.Background(), "No logging configurations loaded, continuing with stdout/stderr only.")
		return l, nil
	}

	l.LogDebug(context.Background(), "Handing over to new logging configuration.")

	return logwrap.New(tee.Tee(impls...)), nil
}

func constructFilter(cfg config.BaseLogging, base logwrap.Impl) (logwrap.Impl, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return base, err
	}

	return filter.Filter(base, func(message logwrap.Message) bool {
		return cfg.Admits(level, message)
	}), nil
}
