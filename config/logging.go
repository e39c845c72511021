package config

import (
	"encoding/json"
	"fmt"
	"github.com/shimmeringbee/logwrap"
	"github.com/tidwall/gjson"
	"strings"
)

type LoggingConfig struct {
	Name   string `json:"-"`
	Type   string
	Config any
}

func (g *LoggingConfig) UnmarshalJSON(data []byte) error {
	if result := gjson.GetBytes(data, "Type"); !result.Exists() {
		return fmt.Errorf("failed to find logging type information")
	} else {
		g.Type = result.String()
	}

	switch g.Type {
	case "stdout":
		g.Config = &StdoutLogging{}
	case "file":
		g.Config = &FileLogging{}
	default:
		return fmt.Errorf("unknown logging configuration type: %s", g.Type)
	}

	result := gjson.GetBytes(data, "Config")
	if !result.Exists() {
		return fmt.Errorf("unable to find Config stanza: %s", g.Type)
	}

	if err := json.Unmarshal([]byte(result.Raw), g.Config); err != nil {
		return err
	}

	return g.Base().Validate()
}

// Base returns the settings shared by every logging type.
func (g *LoggingConfig) Base() BaseLogging {
	switch c := g.Config.(type) {
	case *StdoutLogging:
		return c.BaseLogging
	case *FileLogging:
		return c.BaseLogging
	default:
		return BaseLogging{}
	}
}

const UnknownLevel = configError("unknown log level")

var logLevels = map[string]logwrap.LogLevel{
	"panic": logwrap.Panic,
	"fatal": logwrap.Fatal,
	"error": logwrap.Error,
	"warn":  logwrap.Warn,
	"info":  logwrap.Info,
	"debug": logwrap.Debug,
	"trace": logwrap.Trace,
}

// deviceDatums are the keys door and lift loggers carry their device name under.
var deviceDatums = []string{"door", "lift"}

type BaseLogging struct {
	Level string

	NegateSubsystems bool
	Subsystems       []string

	// Devices limits door and lift messages to the named devices, other messages are unaffected.
	Devices []string
}

// LogLevel is the most verbose level written, info if none is configured.
func (b BaseLogging) LogLevel() (logwrap.LogLevel, error) {
	if len(b.Level) == 0 {
		return logwrap.Info, nil
	}

	level, found := logLevels[strings.ToLower(b.Level)]
	if !found {
		return logwrap.Info, fmt.Errorf("%w: %s", UnknownLevel, b.Level)
	}

	return level, nil
}

func (b BaseLogging) Validate() error {
	if _, err := b.LogLevel(); err != nil {
		return err
	}

	for _, name := range b.Devices {
		if len(strings.TrimSpace(name)) == 0 {
			return fmt.Errorf("%w: logging: blank device name", MissingField)
		}
	}

	return nil
}

// Admits reports if a message at or below level passes the subsystem and device filters.
func (b BaseLogging) Admits(level logwrap.LogLevel, message logwrap.Message) bool {
	if message.Level > level {
		return false
	}

	if len(b.Subsystems) > 0 && b.NegateSubsystems == contains(b.Subsystems, message.Source) {
		return false
	}

	if len(b.Devices) == 0 {
		return true
	}

	for _, key := range deviceDatums {
		if name, found := message.Data[key].(string); found {
			return contains(b.Devices, name)
		}
	}

	return true
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}

	return false
}

type StdoutLogging struct {
	BaseLogging
}

type FileLogging struct {
	BaseLogging

	Filename string
	Size     int
	Count    int
	MaxAge   int
	Compress bool
}
