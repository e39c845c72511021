package main

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/infragate/ads"
	"github.com/shimmeringbee/infragate/config"
	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/door"
	"github.com/shimmeringbee/infragate/gateway"
	"github.com/shimmeringbee/infragate/lift"
	"github.com/shimmeringbee/infragate/modbus"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/nest"
	"path/filepath"
)

var _ lift.Remote = (*ads.Client)(nil)

const DoorsConfigurationFile = "doors.yaml"
const LiftsConfigurationFile = "lifts.yaml"

type StartedDevice struct {
	Identity device.Identity
	Shutdown func() error
}

func loadDeviceConfigurations(dir string) ([]config.DoorConfig, []config.LiftConfig, error) {
	doorData, err := readOptionalFile(filepath.Join(dir, DoorsConfigurationFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read door configuration: %w", err)
	}

	doors, err := config.ParseDoors(doorData)
	if err != nil {
		return nil, nil, err
	}

	liftData, err := readOptionalFile(filepath.Join(dir, LiftsConfigurationFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read lift configuration: %w", err)
	}

	lifts, err := config.ParseLifts(liftData)
	if err != nil {
		return nil, nil, err
	}

	return doors, lifts, nil
}

// startDevices builds a session for every valid configuration and registers it. Invalid configurations are
// skipped, a device that fails to initialise is still registered and left to its health checks.
func startDevices(ctx context.Context, doors []config.DoorConfig, lifts []config.LiftConfig, registry *gateway.Registry, l logwrap.Logger) []StartedDevice {
	var started []StartedDevice

	for _, cfg := range doors {
		wl := logwrap.New(nest.Wrap(l))
		wl.AddOptionsToLogger(logwrap.Source("door"), logwrap.Datum("door", cfg.Name))

		session, err := startDoor(ctx, cfg, wl)
		if err != nil {
			wl.LogError(ctx, "Door not started.", logwrap.Err(err))
			continue
		}

		if err := registry.AddDoor(session); err != nil {
			wl.LogError(ctx, "Failed to register door.", logwrap.Err(err))
			_ = session.Close()
			continue
		}

		started = append(started, StartedDevice{Identity: device.Identity{Name: cfg.Name, Category: device.Door}, Shutdown: session.Close})
	}

	for _, cfg := range lifts {
		wl := logwrap.New(nest.Wrap(l))
		wl.AddOptionsToLogger(logwrap.Source("lift"), logwrap.Datum("lift", cfg.Name))

		session, err := startLift(ctx, cfg, wl)
		if err != nil {
			wl.LogError(ctx, "Lift not started.", logwrap.Err(err))
			continue
		}

		if err := registry.AddLift(session); err != nil {
			wl.LogError(ctx, "Failed to register lift.", logwrap.Err(err))
			_ = session.Close()
			continue
		}

		started = append(started, StartedDevice{Identity: device.Identity{Name: cfg.Name, Category: device.Lift}, Shutdown: session.Close})
	}

	return started
}

func doorSessionConfig(cfg config.DoorConfig) door.Config {
	sessionCfg := door.DefaultConfig(cfg.Name)
	if cfg.Retries > 0 {
		sessionCfg.Retries = cfg.Retries
	}

	if cfg.OpenCoil != nil {
		sessionCfg.OpenCoil = *cfg.OpenCoil
	}

	if cfg.ClosedCoil != nil {
		sessionCfg.ClosedCoil = *cfg.ClosedCoil
	}

	if cfg.HeartbeatCoil != nil {
		sessionCfg.HeartbeatCoil = *cfg.HeartbeatCoil
	}

	if cfg.ActuateCoil != nil {
		sessionCfg.ActuateCoil = *cfg.ActuateCoil
	}

	return sessionCfg
}

func startDoor(ctx context.Context, cfg config.DoorConfig, l logwrap.Logger) (*door.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := modbus.NewClient(cfg.ModbusIP, cfg.ModbusPort)
	client.SetSlaveID(uint8(cfg.SlaveID))

	session := door.NewSession(doorSessionConfig(cfg), client, l)

	if err := session.Initialise(ctx); err != nil {
		l.LogWarn(ctx, "Door failed to initialise.", logwrap.Err(err))
	}

	return session, nil
}

func liftSessionConfig(cfg config.LiftConfig) (lift.Config, error) {
	variables, err := cfg.LiftVariables()
	if err != nil {
		return lift.Config{}, err
	}

	return lift.Config{
		Name:            cfg.Name,
		AvailableFloors: cfg.AvailableFloors,
		AvailableModes:  cfg.AvailableModes,
		Variables:       variables,
	}, nil
}

func startLift(ctx context.Context, cfg config.LiftConfig, l logwrap.Logger) (*lift.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	target, err := ads.ParseNetID(cfg.RemoteNetID)
	if err != nil {
		return nil, fmt.Errorf("remoteNetID: %w", err)
	}

	source, err := ads.ParseNetID(cfg.LocalNetID)
	if err != nil {
		return nil, fmt.Errorf("localNetID: %w", err)
	}

	var opts []ads.Option
	if cfg.RemotePort > 0 {
		opts = append(opts, ads.WithTCPPort(cfg.RemotePort))
	}

	sessionCfg, err := liftSessionConfig(cfg)
	if err != nil {
		return nil, err
	}

	session := lift.NewSession(sessionCfg, ads.NewClient(cfg.RemoteIP, target, source, opts...), l)

	if err := session.Initialise(ctx); err != nil {
		l.LogWarn(ctx, "Lift failed to initialise.", logwrap.Err(err))
	}

	return session, nil
}
