package config

import (
	"fmt"
	"sort"

	"github.com/shimmeringbee/infragate/lift"
	"gopkg.in/yaml.v2"
)

type configError string

func (e configError) Error() string {
	return string(e)
}

const MissingField = configError("required configuration missing")
const UnknownAlias = configError("variable maps to an unknown alias")

// DoorConfig is one entry of the doors file, keyed by door name.
type DoorConfig struct {
	Name string `yaml:"-"`

	ModbusIP   string `yaml:"modbusIP"`
	ModbusPort int    `yaml:"modbusPort"`
	Retries    int    `yaml:"retries"`
	SlaveID    int    `yaml:"slaveID"`

	OpenCoil      *uint16 `yaml:"openCoil"`
	ClosedCoil    *uint16 `yaml:"closedCoil"`
	HeartbeatCoil *uint16 `yaml:"heartbeatCoil"`
	ActuateCoil   *uint16 `yaml:"actuateCoil"`
}

func (c DoorConfig) Validate() error {
	switch {
	case len(c.ModbusIP) == 0:
		return fmt.Errorf("%w: door %s: modbusIP", MissingField, c.Name)
	case c.ModbusPort <= 0:
		return fmt.Errorf("%w: door %s: modbusPort", MissingField, c.Name)
	case c.Retries <= 0:
		return fmt.Errorf("%w: door %s: retries", MissingField, c.Name)
	case c.SlaveID <= 0 || c.SlaveID > 255:
		return fmt.Errorf("%w: door %s: slaveID", MissingField, c.Name)
	}

	return nil
}

// LiftConfig is one entry of the lifts file, keyed by lift name. Variables map remote
// variable names onto the aliases the lift session reads and writes.
type LiftConfig struct {
	Name string `yaml:"-"`

	RemoteIP    string `yaml:"remoteIP"`
	RemotePort  int    `yaml:"remotePort"`
	RemoteNetID string `yaml:"remoteNetID"`
	LocalNetID  string `yaml:"localNetID"`

	AvailableFloors []string `yaml:"available_floors"`
	AvailableModes  []int    `yaml:"available_modes"`

	Variables map[string]string `yaml:"variables"`
}

func (c LiftConfig) Validate() error {
	switch {
	case len(c.RemoteIP) == 0:
		return fmt.Errorf("%w: lift %s: remoteIP", MissingField, c.Name)
	case len(c.RemoteNetID) == 0:
		return fmt.Errorf("%w: lift %s: remoteNetID", MissingField, c.Name)
	case len(c.LocalNetID) == 0:
		return fmt.Errorf("%w: lift %s: localNetID", MissingField, c.Name)
	case c.AvailableFloors == nil:
		return fmt.Errorf("%w: lift %s: available_floors", MissingField, c.Name)
	case c.AvailableModes == nil:
		return fmt.Errorf("%w: lift %s: available_modes", MissingField, c.Name)
	}

	variables, err := c.LiftVariables()
	if err != nil {
		return err
	}

	for _, alias := range sortedKeys(lift.AliasTypes) {
		if _, found := variables[alias]; !found {
			return fmt.Errorf("%w: lift %s: variable for %s", MissingField, c.Name, alias)
		}
	}

	return nil
}

// LiftVariables converts the variables stanza into bindings keyed by alias.
func (c LiftConfig) LiftVariables() (map[string]lift.Variable, error) {
	variables := map[string]lift.Variable{}

	for remote, alias := range c.Variables {
		dataType, found := lift.AliasTypes[alias]
		if !found {
			return nil, fmt.Errorf("%w: lift %s: %s -> %s", UnknownAlias, c.Name, remote, alias)
		}

		variables[alias] = lift.Variable{Name: remote, Type: dataType}
	}

	return variables, nil
}

func ParseDoors(data []byte) ([]DoorConfig, error) {
	var byName map[string]DoorConfig
	if err := yaml.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("failed to parse doors configuration: %w", err)
	}

	var doors []DoorConfig
	for _, name := range sortedKeys(byName) {
		cfg := byName[name]
		cfg.Name = name
		doors = append(doors, cfg)
	}

	return doors, nil
}

func ParseLifts(data []byte) ([]LiftConfig, error) {
	var byName map[string]LiftConfig
	if err := yaml.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("failed to parse lifts configuration: %w", err)
	}

	var lifts []LiftConfig
	for _, name := range sortedKeys(byName) {
		cfg := byName[name]
		cfg.Name = name
		lifts = append(lifts, cfg)
	}

	return lifts, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}
