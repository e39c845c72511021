package door

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/modbus"
	"github.com/shimmeringbee/logwrap"
)

// State is the position of a door, values are those sent in telemetry.
type State int

const (
	Closed  State = 0
	Moving  State = 1
	Open    State = 2
	Offline State = 3
	Unknown State = 4
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Moving:
		return "moving"
	case Open:
		return "open"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

const (
	DefaultOpenCoil      uint16 = 1
	DefaultClosedCoil    uint16 = 2
	DefaultHeartbeatCoil uint16 = 9
	DefaultActuateCoil   uint16 = 17

	DefaultWriteSettle = 20 * time.Millisecond
	DefaultReadSettle  = 5 * time.Millisecond
)

type doorError string

func (e doorError) Error() string {
	return string(e)
}

const ConnectionError = doorError("door connection failed")
const Unusable = doorError("door session unusable")

// Link is the coil access a door controller needs, satisfied by *modbus.Client.
type Link interface {
	Connect(ctx context.Context) error
	Close() error
	ReadCoils(ctx context.Context, address uint16, count uint16) ([]bool, error)
	WriteCoil(ctx context.Context, address uint16, value bool) error
}

var _ Link = (*modbus.Client)(nil)

type Config struct {
	Name    string
	Retries int

	OpenCoil      uint16
	ClosedCoil    uint16
	ActuateCoil   uint16
	HeartbeatCoil uint16

	WriteSettle time.Duration
	ReadSettle  time.Duration
}

func DefaultConfig(name string) Config {
	return Config{
		Name:          name,
		Retries:       1,
		OpenCoil:      DefaultOpenCoil,
		ClosedCoil:    DefaultClosedCoil,
		ActuateCoil:   DefaultActuateCoil,
		HeartbeatCoil: DefaultHeartbeatCoil,
		WriteSettle:   DefaultWriteSettle,
		ReadSettle:    DefaultReadSettle,
	}
}

// Session is the gateway's view of one door controller. It is not safe for concurrent use,
// callers serialise access.
type Session struct {
	cfg    Config
	link   Link
	logger logwrap.Logger
	sleep  func(time.Duration)

	state    device.ConnectionState
	unusable bool
}

func NewSession(cfg Config, link Link, l logwrap.Logger) *Session {
	return &Session{
		cfg:    cfg,
		link:   link,
		logger: l,
		sleep:  time.Sleep,
		state:  device.Disconnected,
	}
}

func (s *Session) Name() string {
	return s.cfg.Name
}

func (s *Session) ConnectionState() device.ConnectionState {
	return s.state
}

// Usable is false once initialisation has exhausted its retries.
func (s *Session) Usable() bool {
	return !s.unusable
}

// Initialise connects to the controller, making up to Retries attempts back to back.
func (s *Session) Initialise(ctx context.Context) error {
	attempts := s.cfg.Retries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		s.logger.LogInfo(ctx, "Connecting to door controller.", logwrap.Datum("attempt", attempt))

		if lastErr = s.link.Connect(ctx); lastErr == nil {
			s.state = device.Connected
			s.logger.LogInfo(ctx, "Door controller connected.")
			return nil
		}

		s.logger.LogWarn(ctx, "Failed to connect to door controller.", logwrap.Datum("attempt", attempt), logwrap.Err(lastErr))
	}

	s.unusable = true
	s.state = device.Disconnected

	return fmt.Errorf("%w: %s after %d attempts: %w", ConnectionError, s.cfg.Name, attempts, lastErr)
}

func (s *Session) Close() error {
	s.state = device.Disconnected
	return s.link.Close()
}

// ActuateDoor writes the actuation coil and confirms it by reading it back.
func (s *Session) ActuateDoor(ctx context.Context, open bool) device.Outcome {
	err := s.link.WriteCoil(ctx, s.cfg.ActuateCoil, open)
	s.observe(ctx, err)
	if err != nil {
		s.logger.LogError(ctx, "Failed to write door actuation coil.", logwrap.Datum("open", open), logwrap.Err(err))
		return device.Rejected
	}

	s.sleep(s.cfg.WriteSettle)

	values, err := s.link.ReadCoils(ctx, s.cfg.ActuateCoil, 1)
	s.observe(ctx, err)

	s.sleep(s.cfg.ReadSettle)

	if err != nil {
		s.logger.LogError(ctx, "Failed to read back door actuation coil.", logwrap.Err(err))
		return device.Unverified
	}

	if values[0] != open {
		s.logger.LogWarn(ctx, "Door actuation coil did not read back as written.", logwrap.Datum("open", open))
		return device.Unverified
	}

	return device.Verified
}

// GetDoorState derives the door position from its fully open and fully closed sensors.
func (s *Session) GetDoorState(ctx context.Context) State {
	open, err := s.readCoil(ctx, s.cfg.OpenCoil)
	if err != nil {
		return Offline
	}

	closed, err := s.readCoil(ctx, s.cfg.ClosedCoil)
	if err != nil {
		return Offline
	}

	switch {
	case open && !closed:
		return Open
	case !open && closed:
		return Closed
	case !open && !closed:
		return Moving
	default:
		s.logger.LogWarn(ctx, "Door reports both fully open and fully closed.")
		return Unknown
	}
}

// CheckConnection reads the heartbeat coil, reconnecting first if the socket was lost.
func (s *Session) CheckConnection(ctx context.Context) bool {
	if s.unusable {
		return false
	}

	if s.state == device.Disconnected {
		if err := s.link.Connect(ctx); err != nil {
			s.logger.LogWarn(ctx, "Failed to reconnect to door controller.", logwrap.Err(err))
			return false
		}

		s.logger.LogInfo(ctx, "Door controller reconnected.")
		s.state = device.Connected
	}

	_, err := s.link.ReadCoils(ctx, s.cfg.HeartbeatCoil, 1)
	s.observe(ctx, err)

	if err != nil {
		s.logger.LogWarn(ctx, "Door controller heartbeat failed.", logwrap.Err(err))
		return false
	}

	return true
}

func (s *Session) readCoil(ctx context.Context, address uint16) (bool, error) {
	values, err := s.link.ReadCoils(ctx, address, 1)
	s.observe(ctx, err)

	s.sleep(s.cfg.ReadSettle)

	if err != nil {
		s.logger.LogError(ctx, "Failed to read door coil.", logwrap.Datum("address", address), logwrap.Err(err))
		return false, err
	}

	return values[0], nil
}

// observe moves the connection state according to the result of an operation.
func (s *Session) observe(ctx context.Context, err error) {
	switch {
	case err == nil:
		s.state = device.Connected
	case errors.Is(err, modbus.BadConnection):
		if s.state != device.Disconnected {
			s.logger.LogWarn(ctx, "Door controller connection lost.", logwrap.Err(err))
		}

		s.state = device.Disconnected
		_ = s.link.Close()
	case errors.Is(err, modbus.BadInput):
	default:
		s.state = device.Degraded
	}
}
