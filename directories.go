package main

import (
	"context"
	"flag"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/shimmeringbee/infragate/interface/mqtt"
	"github.com/shimmeringbee/logwrap"
	"os"
	"path/filepath"
	"time"
)

const DefaultDirectoryPermissions = 0700

const EnvironmentPathVariable = "INFRAGATE_ENV_PATH"
const DefaultEnvironmentPath = ".env"

type Directories struct {
	Config string
	Log    string
}

type Settings struct {
	Directories     Directories
	PublishInterval time.Duration
}

// loadEnvironment populates the process environment from a dotenv file, values already set are kept.
func loadEnvironment(ctx context.Context, l logwrap.Logger) {
	envPath := DefaultEnvironmentPath
	if path := os.Getenv(EnvironmentPathVariable); path != "" {
		envPath = path
	}

	if err := godotenv.Load(envPath); err != nil {
		l.LogDebug(ctx, "No environment file loaded.", logwrap.Datum("path", envPath), logwrap.Err(err))
	} else {
		l.LogInfo(ctx, "Loaded environment file.", logwrap.Datum("path", envPath))
	}
}

func parseSettings(ctx context.Context, l logwrap.Logger, args []string) Settings {
	fs := flag.NewFlagSet("infragate", flag.ExitOnError)

	defaultConfigDirectory, err := defaultDirectory("config")
	if err != nil {
		l.LogFatal(ctx, "Failed to construct default configuration directory.", logwrap.Err(err))
	}

	defaultLogDirectory, err := defaultDirectory("log")
	if err != nil {
		l.LogFatal(ctx, "Failed to construct default log directory.", logwrap.Err(err))
	}

	configDirectory := fs.String("config-directory", defaultConfigDirectory, "location of configuration files")
	logDirectory := fs.String("log-directory", defaultLogDirectory, "location of log files")
	publishInterval := fs.Duration("publish-interval", mqtt.DefaultPublishInterval, "interval between device state publications")

	if err := ff.Parse(fs, args, ff.WithEnvVarNoPrefix()); err != nil {
		l.LogFatal(ctx, "Failed to parse environment/command line arguments.", logwrap.Err(err))
	}

	if err := os.MkdirAll(*configDirectory, DefaultDirectoryPermissions); err != nil {
		l.LogFatal(ctx, "Failed to initialise configuration directory.", logwrap.Err(err))
	}

	if err := os.MkdirAll(*logDirectory, DefaultDirectoryPermissions); err != nil {
		l.LogFatal(ctx, "Failed to initialise log directory.", logwrap.Err(err))
	}

	return Settings{
		Directories: Directories{
			Config: *configDirectory,
			Log:    *logDirectory,
		},
		PublishInterval: *publishInterval,
	}
}

func defaultDirectory(t string) (string, error) {
	if configDir, err := os.UserConfigDir(); err != nil {
		return "", err
	} else {
		return filepath.Join(configDir, "shimmeringbee", "infragate", t), nil
	}
}
