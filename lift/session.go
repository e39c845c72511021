package lift

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/logwrap"
)

const (
	AliasLiftTask              = "liftTask"
	AliasEndLiftTask           = "endLiftTask"
	AliasRobotDestinationFloor = "robotDestinationFloor"
	AliasCurrentFloor          = "liftCurrentFloor"
	AliasDestinationFloor      = "liftDestinationFloor"
	AliasDoorState             = "liftDoorState"
	AliasMotionState           = "liftMotionState"
	AliasFireAlarm             = "fireAlarm"
	AliasTurnKeyToManual       = "turnKeyToManual"
	AliasAGVMode               = "agvMode"
)

// AliasTypes are the types each alias the session relies on is exchanged as.
var AliasTypes = map[string]DataType{
	AliasLiftTask:              Bool,
	AliasEndLiftTask:           Bool,
	AliasRobotDestinationFloor: Int8,
	AliasCurrentFloor:          Int8,
	AliasDestinationFloor:      Int8,
	AliasDoorState:             Int16,
	AliasMotionState:           Int16,
	AliasFireAlarm:             Bool,
	AliasTurnKeyToManual:       Bool,
	AliasAGVMode:               Bool,
}

type Mode int

const (
	ModeUnknown        Mode = 0
	ModeNormal         Mode = 1
	ModeAGV            Mode = 2
	ModeFireAlarm      Mode = 3
	ModeManualOverride Mode = 4
)

type Config struct {
	Name            string
	AvailableFloors []string
	AvailableModes  []int
	Variables       map[string]Variable
}

// Session is the gateway's view of one lift controller. It is not safe for concurrent use,
// callers serialise access.
type Session struct {
	name   string
	remote Remote
	logger logwrap.Logger

	availableFloors []string
	availableModes  []int

	bindings  *bindingTable
	state     device.ConnectionState
	runState  uint16
	sessionID string
}

func NewSession(cfg Config, remote Remote, l logwrap.Logger) *Session {
	return &Session{
		name:            cfg.Name,
		remote:          remote,
		logger:          l,
		availableFloors: cfg.AvailableFloors,
		availableModes:  cfg.AvailableModes,
		bindings:        newBindingTable(remote, cfg.Variables),
		state:           device.Disconnected,
	}
}

func (s *Session) Name() string {
	return s.name
}

func (s *Session) ConnectionState() device.ConnectionState {
	return s.state
}

// RunState is the last run state code reported by the remote runtime.
func (s *Session) RunState() uint16 {
	return s.runState
}

func (s *Session) AvailableFloors() []string {
	return s.availableFloors
}

func (s *Session) AvailableModes() []int {
	return s.availableModes
}

func (s *Session) SessionID() string {
	return s.sessionID
}

func (s *Session) SetSessionID(id string) {
	s.sessionID = id
}

func (s *Session) Initialise(ctx context.Context) error {
	if err := s.remote.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", ConnectionError, err)
	}

	if _, ok := s.ConnectionCheck(ctx); !ok {
		return fmt.Errorf("%w: remote not running", ConnectionError)
	}

	return nil
}

func (s *Session) Close() error {
	s.bindings.invalidate()
	s.state = device.Disconnected
	return s.remote.Close()
}

// ConnectionCheck queries the remote run state. Any result other than running rebuilds
// the connection and drops every binding, a return to running rebinds all aliases.
func (s *Session) ConnectionCheck(ctx context.Context) (uint16, bool) {
	previous := s.state

	runState, err := s.remote.ReadState(ctx)
	if err != nil {
		s.logger.LogWarn(ctx, "Failed to query lift run state, reconnecting.", logwrap.Err(err))
		s.reconnect(ctx, device.Disconnected)
		return s.runState, false
	}

	s.runState = runState

	if runState != RunStateRun {
		s.logger.LogWarn(ctx, "Lift runtime is not running, reconnecting.", logwrap.Datum("runState", runState))
		s.reconnect(ctx, device.Degraded)
		return runState, false
	}

	s.state = device.Connected

	if previous != device.Connected {
		s.logger.LogInfo(ctx, "Lift connected, binding variables.", logwrap.Datum("previousState", previous.String()))
		s.rebindAll(ctx)
	}

	return runState, true
}

func (s *Session) reconnect(ctx context.Context, state device.ConnectionState) {
	s.state = state
	s.bindings.invalidate()

	_ = s.remote.Close()

	if err := s.remote.Connect(ctx); err != nil {
		s.logger.LogError(ctx, "Failed to reconnect to lift.", logwrap.Err(err))
	}
}

func (s *Session) rebindAll(ctx context.Context) {
	for _, alias := range s.bindings.aliases() {
		if _, err := s.bindings.bind(ctx, alias); err != nil {
			s.logger.LogError(ctx, "Failed to bind lift variable.", logwrap.Datum("alias", alias), logwrap.Err(err))
		}
	}
}

func (s *Session) ReadValue(ctx context.Context, alias string) (any, error) {
	if s.state != device.Connected {
		return nil, fmt.Errorf("%w: read of %s while %s", ConnectionError, alias, s.state)
	}

	return s.bindings.read(ctx, alias)
}

func (s *Session) WriteValue(ctx context.Context, alias string, value any) error {
	if s.state != device.Connected {
		return fmt.Errorf("%w: write of %s while %s", ConnectionError, alias, s.state)
	}

	return s.bindings.write(ctx, alias, value)
}

func (s *Session) readBool(ctx context.Context, alias string) (bool, error) {
	v, err := s.ReadValue(ctx, alias)
	if err != nil {
		return false, err
	}

	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is %T", TypeMismatch, alias, v)
	}

	return b, nil
}

func (s *Session) readInt8(ctx context.Context, alias string) (int8, error) {
	v, err := s.ReadValue(ctx, alias)
	if err != nil {
		return 0, err
	}

	i, ok := v.(int8)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T", TypeMismatch, alias, v)
	}

	return i, nil
}

func (s *Session) readInt16(ctx context.Context, alias string) (int16, error) {
	v, err := s.ReadValue(ctx, alias)
	if err != nil {
		return 0, err
	}

	i, ok := v.(int16)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T", TypeMismatch, alias, v)
	}

	return i, nil
}

// floor reads a floor number, the PLC reports 0 when it has no floor.
func (s *Session) floor(ctx context.Context, alias string) (string, bool) {
	v, err := s.readInt8(ctx, alias)
	if err != nil {
		s.logger.LogError(ctx, "Failed to read lift floor.", logwrap.Datum("alias", alias), logwrap.Err(err))
		return "", false
	}

	if v == 0 {
		return "", false
	}

	return strconv.Itoa(int(v)), true
}

func (s *Session) CurrentFloor(ctx context.Context) (string, bool) {
	return s.floor(ctx, AliasCurrentFloor)
}

func (s *Session) DestinationFloor(ctx context.Context) (string, bool) {
	return s.floor(ctx, AliasDestinationFloor)
}

func (s *Session) CurrentMode(ctx context.Context) Mode {
	for _, m := range []struct {
		alias string
		mode  Mode
	}{
		{AliasFireAlarm, ModeFireAlarm},
		{AliasTurnKeyToManual, ModeManualOverride},
		{AliasAGVMode, ModeAGV},
	} {
		set, err := s.readBool(ctx, m.alias)
		if err != nil {
			s.logger.LogError(ctx, "Failed to read lift mode.", logwrap.Datum("alias", m.alias), logwrap.Err(err))
			return ModeUnknown
		}

		if set {
			return m.mode
		}
	}

	return ModeNormal
}

func (s *Session) DoorState(ctx context.Context) int16 {
	v, err := s.readInt16(ctx, AliasDoorState)
	if err != nil {
		s.logger.LogError(ctx, "Failed to read lift door state.", logwrap.Err(err))
		return 0
	}

	return v
}

func (s *Session) MotionState(ctx context.Context) int16 {
	v, err := s.readInt16(ctx, AliasMotionState)
	if err != nil {
		s.logger.LogError(ctx, "Failed to read lift motion state.", logwrap.Err(err))
		return 0
	}

	return v
}

// CommandLift requests the lift travel to floor, then confirms the PLC accepted the task.
func (s *Session) CommandLift(ctx context.Context, floor string) device.Outcome {
	target, err := strconv.ParseInt(floor, 10, 8)
	if err != nil {
		s.logger.LogError(ctx, "Lift command floor is not a valid floor number.", logwrap.Datum("floor", floor), logwrap.Err(err))
		return device.Rejected
	}

	writes := []assignment{
		{AliasLiftTask, true},
		{AliasEndLiftTask, false},
		{AliasRobotDestinationFloor, int8(target)},
	}

	if outcome := s.writeAll(ctx, writes); outcome != device.Verified {
		return outcome
	}

	readBack, err := s.readInt8(ctx, AliasRobotDestinationFloor)
	if err != nil || readBack != int8(target) {
		s.logger.LogError(ctx, "Lift destination did not read back as written.", logwrap.Datum("floor", floor), logwrap.Err(err))
		return device.Unverified
	}

	task, taskErr := s.readBool(ctx, AliasLiftTask)
	endTask, endTaskErr := s.readBool(ctx, AliasEndLiftTask)
	_, hasDestination := s.DestinationFloor(ctx)

	if taskErr != nil || endTaskErr != nil || !task || endTask || !hasDestination {
		s.logger.LogWarn(ctx, "Lift did not confirm task.", logwrap.Datum("liftTask", task), logwrap.Datum("endLiftTask", endTask), logwrap.Datum("hasDestination", hasDestination))
		return device.Unverified
	}

	return device.Verified
}

func (s *Session) EndLift(ctx context.Context) device.Outcome {
	writes := []assignment{
		{AliasLiftTask, false},
		{AliasEndLiftTask, true},
	}

	if outcome := s.writeAll(ctx, writes); outcome != device.Verified {
		return outcome
	}

	task, taskErr := s.readBool(ctx, AliasLiftTask)
	endTask, endTaskErr := s.readBool(ctx, AliasEndLiftTask)

	if taskErr != nil || endTaskErr != nil || task || !endTask {
		s.logger.LogWarn(ctx, "Lift did not confirm end of task.", logwrap.Datum("liftTask", task), logwrap.Datum("endLiftTask", endTask))
		return device.Unverified
	}

	return device.Verified
}

type assignment struct {
	alias string
	value any
}

// writeAll performs writes in order, stopping at the first failure. Verified here only means every write was accepted.
func (s *Session) writeAll(ctx context.Context, writes []assignment) device.Outcome {
	for i, w := range writes {
		if err := s.WriteValue(ctx, w.alias, w.value); err != nil {
			s.logger.LogError(ctx, "Failed to write lift variable.", logwrap.Datum("alias", w.alias), logwrap.Err(err))

			if i == 0 {
				return device.Rejected
			}

			return device.Unverified
		}
	}

	return device.Verified
}
