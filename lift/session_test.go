package lift

import (
	"context"
	"errors"
	"testing"

	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errIO = errors.New("io failure")

type memoryVariable struct {
	plcType string
	value   []byte
}

// memoryRemote is a PLC held in memory, closing it invalidates every handle it issued.
type memoryRemote struct {
	state    uint16
	stateErr error

	variables map[string]*memoryVariable
	handles   map[uint32]string
	next      uint32

	failRead    map[string]bool
	failWrite   map[string]bool
	ignoreWrite map[string]bool

	connects int
	closes   int
	resolves int
	releases int
}

func newMemoryRemote() *memoryRemote {
	r := &memoryRemote{
		state:       RunStateRun,
		variables:   map[string]*memoryVariable{},
		handles:     map[uint32]string{},
		failRead:    map[string]bool{},
		failWrite:   map[string]bool{},
		ignoreWrite: map[string]bool{},
	}

	plcTypes := map[DataType]string{Bool: "BOOL", Int8: "SINT", Int16: "INT"}

	for alias, dt := range AliasTypes {
		r.variables["MAIN."+alias] = &memoryVariable{plcType: plcTypes[dt], value: make([]byte, dt.Size())}
	}

	return r
}

func (r *memoryRemote) Connect(ctx context.Context) error {
	r.connects++
	return nil
}

func (r *memoryRemote) Close() error {
	r.closes++
	r.handles = map[uint32]string{}
	return nil
}

func (r *memoryRemote) ReadState(ctx context.Context) (uint16, error) {
	return r.state, r.stateErr
}

func (r *memoryRemote) Resolve(ctx context.Context, name string) (uint32, string, error) {
	r.resolves++

	v, found := r.variables[name]
	if !found {
		return 0, "", errors.New("symbol not found")
	}

	r.next++
	r.handles[r.next] = name
	return r.next, v.plcType, nil
}

func (r *memoryRemote) Release(ctx context.Context, handle uint32) error {
	r.releases++
	delete(r.handles, handle)
	return nil
}

func (r *memoryRemote) Read(ctx context.Context, handle uint32, size int) ([]byte, error) {
	name, found := r.handles[handle]
	if !found || r.failRead[name] {
		return nil, errIO
	}

	return append([]byte{}, r.variables[name].value...), nil
}

func (r *memoryRemote) Write(ctx context.Context, handle uint32, data []byte) error {
	name, found := r.handles[handle]
	if !found || r.failWrite[name] {
		return errIO
	}

	if !r.ignoreWrite[name] {
		r.variables[name].value = append([]byte{}, data...)
	}

	return nil
}

func (r *memoryRemote) set(alias string, value ...byte) {
	r.variables["MAIN."+alias].value = value
}

func testConfig() Config {
	vars := map[string]Variable{}
	for alias, dt := range AliasTypes {
		vars[alias] = Variable{Name: "MAIN." + alias, Type: dt}
	}

	return Config{
		Name:            "lift-a",
		AvailableFloors: []string{"1", "2", "3"},
		AvailableModes:  []int{1, 2},
		Variables:       vars,
	}
}

func initialisedSession(t *testing.T, r *memoryRemote) *Session {
	s := NewSession(testConfig(), r, logwrap.New(discard.Discard()))
	require.NoError(t, s.Initialise(context.Background()))
	return s
}

func TestSession_Initialise(t *testing.T) {
	t.Run("connects and binds every alias", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		assert.Equal(t, device.Connected, s.ConnectionState())
		assert.Equal(t, RunStateRun, s.RunState())
		assert.Equal(t, len(AliasTypes), r.resolves)
	})

	t.Run("fails if the runtime is not running", func(t *testing.T) {
		r := newMemoryRemote()
		r.state = 6

		s := NewSession(testConfig(), r, logwrap.New(discard.Discard()))
		err := s.Initialise(context.Background())

		assert.ErrorIs(t, err, ConnectionError)
		assert.Equal(t, device.Degraded, s.ConnectionState())
		assert.Equal(t, uint16(6), s.RunState())
	})
}

func TestSession_ReadWriteValue(t *testing.T) {
	ctx := context.Background()

	t.Run("reads fail without touching the remote while not connected", func(t *testing.T) {
		r := newMemoryRemote()
		s := NewSession(testConfig(), r, logwrap.New(discard.Discard()))

		_, err := s.ReadValue(ctx, AliasLiftTask)
		assert.ErrorIs(t, err, ConnectionError)
		assert.Equal(t, 0, r.resolves)
	})

	t.Run("unknown aliases are reported", func(t *testing.T) {
		s := initialisedSession(t, newMemoryRemote())

		_, err := s.ReadValue(ctx, "unknown")
		assert.ErrorIs(t, err, UnknownAlias)
	})

	t.Run("a value of the wrong go type is a mismatch and forces a rebind", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)
		before := r.resolves

		err := s.WriteValue(ctx, AliasRobotDestinationFloor, int16(3))
		assert.ErrorIs(t, err, TypeMismatch)
		assert.Equal(t, 1, r.releases)

		require.NoError(t, s.WriteValue(ctx, AliasRobotDestinationFloor, int8(3)))
		assert.Equal(t, before+1, r.resolves)
	})

	t.Run("an io failure fails the call and rebinds on the next", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)
		before := r.resolves

		r.failRead["MAIN."+AliasDoorState] = true
		_, err := s.ReadValue(ctx, AliasDoorState)
		assert.ErrorIs(t, err, IOFailure)

		r.failRead["MAIN."+AliasDoorState] = false
		r.set(AliasDoorState, 2, 0)

		v, err := s.ReadValue(ctx, AliasDoorState)
		assert.NoError(t, err)
		assert.Equal(t, int16(2), v)
		assert.Equal(t, before+1, r.resolves)
	})
}

func TestSession_Binding(t *testing.T) {
	ctx := context.Background()

	t.Run("a remote type different to the declared type is refused and released", func(t *testing.T) {
		r := &MockRemote{}
		defer r.AssertExpectations(t)

		cfg := Config{Name: "lift-a", Variables: map[string]Variable{
			AliasCurrentFloor: {Name: "MAIN.floor", Type: Int8},
		}}

		r.On("Connect", mock.Anything).Return(nil)
		r.On("ReadState", mock.Anything).Return(RunStateRun, nil)
		r.On("Resolve", mock.Anything, "MAIN.floor").Return(uint32(7), "INT", nil).Twice()
		r.On("Release", mock.Anything, uint32(7)).Return(nil).Twice()

		s := NewSession(cfg, r, logwrap.New(discard.Discard()))
		require.NoError(t, s.Initialise(ctx))

		_, err := s.ReadValue(ctx, AliasCurrentFloor)
		assert.ErrorIs(t, err, TypeMismatch)
	})

	t.Run("a failed run state query drops the connection and bindings", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		r.stateErr = errIO
		_, ok := s.ConnectionCheck(ctx)

		assert.False(t, ok)
		assert.Equal(t, device.Disconnected, s.ConnectionState())
		assert.Equal(t, 1, r.closes)
		assert.Equal(t, 2, r.connects)

		_, err := s.ReadValue(ctx, AliasLiftTask)
		assert.ErrorIs(t, err, ConnectionError)
	})

	t.Run("a runtime not running marks the session degraded", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		r.state = 6
		runState, ok := s.ConnectionCheck(ctx)

		assert.False(t, ok)
		assert.Equal(t, uint16(6), runState)
		assert.Equal(t, device.Degraded, s.ConnectionState())
	})

	t.Run("recovery rebinds every alias before further use", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		r.stateErr = errIO
		s.ConnectionCheck(ctx)

		r.stateErr = nil
		resolvesBeforeRecovery := r.resolves

		_, ok := s.ConnectionCheck(ctx)
		assert.True(t, ok)
		assert.Equal(t, device.Connected, s.ConnectionState())
		assert.Equal(t, resolvesBeforeRecovery+len(AliasTypes), r.resolves)

		r.set(AliasLiftTask, 1)
		v, err := s.ReadValue(ctx, AliasLiftTask)
		assert.NoError(t, err)
		assert.Equal(t, true, v)
		assert.Equal(t, resolvesBeforeRecovery+len(AliasTypes), r.resolves)
	})

	t.Run("a healthy check does not rebind", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)
		before := r.resolves

		_, ok := s.ConnectionCheck(ctx)
		assert.True(t, ok)
		assert.Equal(t, before, r.resolves)
	})
}

func TestSession_State(t *testing.T) {
	ctx := context.Background()

	t.Run("floors are absent when the plc reports zero", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		_, ok := s.CurrentFloor(ctx)
		assert.False(t, ok)

		r.set(AliasCurrentFloor, 3)
		floor, ok := s.CurrentFloor(ctx)
		assert.True(t, ok)
		assert.Equal(t, "3", floor)

		r.set(AliasDestinationFloor, 0xfe)
		floor, ok = s.DestinationFloor(ctx)
		assert.True(t, ok)
		assert.Equal(t, "-2", floor)
	})

	t.Run("mode follows fire alarm then manual then agv priority", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		assert.Equal(t, ModeNormal, s.CurrentMode(ctx))

		r.set(AliasAGVMode, 1)
		assert.Equal(t, ModeAGV, s.CurrentMode(ctx))

		r.set(AliasTurnKeyToManual, 1)
		assert.Equal(t, ModeManualOverride, s.CurrentMode(ctx))

		r.set(AliasFireAlarm, 1)
		assert.Equal(t, ModeFireAlarm, s.CurrentMode(ctx))
	})

	t.Run("mode is unknown if any flag cannot be read", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		r.failRead["MAIN."+AliasTurnKeyToManual] = true
		assert.Equal(t, ModeUnknown, s.CurrentMode(ctx))
	})

	t.Run("door and motion state are read as codes", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		r.set(AliasDoorState, 3, 0)
		r.set(AliasMotionState, 1, 0)

		assert.Equal(t, int16(3), s.DoorState(ctx))
		assert.Equal(t, int16(1), s.MotionState(ctx))
	})

	t.Run("session id is stored", func(t *testing.T) {
		s := NewSession(testConfig(), newMemoryRemote(), logwrap.New(discard.Discard()))
		s.SetSessionID("robot-7")

		assert.Equal(t, "robot-7", s.SessionID())
		assert.Equal(t, []string{"1", "2", "3"}, s.AvailableFloors())
		assert.Equal(t, []int{1, 2}, s.AvailableModes())
	})
}

func TestSession_Commands(t *testing.T) {
	ctx := context.Background()

	t.Run("command lift is verified when the plc accepts the task", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		// The PLC copies the robot destination into its own destination.
		r.set(AliasDestinationFloor, 4)

		assert.Equal(t, device.Verified, s.CommandLift(ctx, "4"))
		assert.Equal(t, []byte{1}, r.variables["MAIN."+AliasLiftTask].value)
		assert.Equal(t, []byte{0}, r.variables["MAIN."+AliasEndLiftTask].value)
		assert.Equal(t, []byte{4}, r.variables["MAIN."+AliasRobotDestinationFloor].value)
	})

	t.Run("command lift is rejected for a floor that is not a number", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		assert.Equal(t, device.Rejected, s.CommandLift(ctx, "roof"))
		assert.Equal(t, []byte{0}, r.variables["MAIN."+AliasLiftTask].value)
	})

	t.Run("command lift is rejected when the first write fails", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		r.failWrite["MAIN."+AliasLiftTask] = true
		assert.Equal(t, device.Rejected, s.CommandLift(ctx, "2"))
	})

	t.Run("command lift is unverified after a partial write", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		r.failWrite["MAIN."+AliasRobotDestinationFloor] = true
		assert.Equal(t, device.Unverified, s.CommandLift(ctx, "2"))
		assert.Equal(t, []byte{1}, r.variables["MAIN."+AliasLiftTask].value)
	})

	t.Run("command lift is unverified if the destination does not read back", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		r.set(AliasDestinationFloor, 2)
		r.ignoreWrite["MAIN."+AliasRobotDestinationFloor] = true

		assert.Equal(t, device.Unverified, s.CommandLift(ctx, "2"))
	})

	t.Run("command lift is unverified if the plc has no destination", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)

		assert.Equal(t, device.Unverified, s.CommandLift(ctx, "2"))
	})

	t.Run("end lift is verified when the flags read back inverted", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)
		r.set(AliasLiftTask, 1)

		assert.Equal(t, device.Verified, s.EndLift(ctx))
		assert.Equal(t, []byte{0}, r.variables["MAIN."+AliasLiftTask].value)
		assert.Equal(t, []byte{1}, r.variables["MAIN."+AliasEndLiftTask].value)
	})

	t.Run("end lift is unverified if the plc keeps its task", func(t *testing.T) {
		r := newMemoryRemote()
		s := initialisedSession(t, r)
		r.set(AliasLiftTask, 1)
		r.ignoreWrite["MAIN."+AliasLiftTask] = true

		assert.Equal(t, device.Unverified, s.EndLift(ctx))
	})

	t.Run("commands are rejected while disconnected", func(t *testing.T) {
		s := NewSession(testConfig(), newMemoryRemote(), logwrap.New(discard.Discard()))

		assert.Equal(t, device.Rejected, s.CommandLift(ctx, "2"))
		assert.Equal(t, device.Rejected, s.EndLift(ctx))
	})
}
