package mqtt

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/door"
	"github.com/shimmeringbee/infragate/gateway"
	"github.com/shimmeringbee/infragate/interface/converters/exporter"
	"github.com/shimmeringbee/infragate/modbus"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTopics = Topics{
	LiftState:   "lift/state",
	LiftCommand: "lift/command",
	DoorState:   "door/state",
	DoorCommand: "door/command",
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) Command(ctx context.Context, category device.Category, payload []byte) error {
	args := m.Called(ctx, category, payload)
	return args.Error(0)
}

func (m *MockCoordinator) Snapshot(ctx context.Context) []device.Telemetry {
	args := m.Called(ctx)
	return args.Get(0).([]device.Telemetry)
}

func testInterface(c Coordinator) *Interface {
	return &Interface{Coordinator: c, Topics: testTopics, Logger: logwrap.New(discard.Discard())}
}

func TestInterface_IncomingMessage(t *testing.T) {
	t.Run("lift command topic is routed as a lift command", func(t *testing.T) {
		mc := &MockCoordinator{}
		defer mc.AssertExpectations(t)
		mc.On("Command", mock.Anything, device.Lift, []byte(`{}`)).Return(nil)

		err := testInterface(mc).IncomingMessage(context.Background(), "lift/command", []byte(`{}`))
		assert.NoError(t, err)
	})

	t.Run("door command topic is routed as a door command", func(t *testing.T) {
		mc := &MockCoordinator{}
		defer mc.AssertExpectations(t)
		mc.On("Command", mock.Anything, device.Door, []byte(`{}`)).Return(nil)

		err := testInterface(mc).IncomingMessage(context.Background(), "door/command", []byte(`{}`))
		assert.NoError(t, err)
	})

	t.Run("any other topic is unknown", func(t *testing.T) {
		mc := &MockCoordinator{}
		defer mc.AssertExpectations(t)

		err := testInterface(mc).IncomingMessage(context.Background(), "lift/state", []byte(`{}`))
		assert.ErrorIs(t, err, UnknownTopic)
	})
}

func TestInterface_PublishState(t *testing.T) {
	t.Run("nothing is collected before the broker connects", func(t *testing.T) {
		mc := &MockCoordinator{}
		defer mc.AssertExpectations(t)

		testInterface(mc).PublishState()
	})

	t.Run("each message is published to the state topic of its category", func(t *testing.T) {
		mc := &MockCoordinator{}
		defer mc.AssertExpectations(t)
		mc.On("Snapshot", mock.Anything).Return([]device.Telemetry{
			{Identity: device.Identity{Name: "D1", Category: device.Door}, Payload: map[string]int{"current_mode": 2}},
			{Identity: device.Identity{Name: "L1", Category: device.Lift}, Payload: map[string]string{"lift_name": "L1"}},
		})

		mp := &MockPublisher{}
		defer mp.AssertExpectations(t)
		mp.On("Publish", mock.Anything, "door/state", []byte(`{"current_mode":2}`)).Return(nil)
		mp.On("Publish", mock.Anything, "lift/state", []byte(`{"lift_name":"L1"}`)).Return(nil)

		i := testInterface(mc)
		assert.NoError(t, i.Connected(context.Background(), mp.Publish))

		i.PublishState()
	})

	t.Run("a failed publish does not stop the remaining messages", func(t *testing.T) {
		mc := &MockCoordinator{}
		mc.On("Snapshot", mock.Anything).Return([]device.Telemetry{
			{Identity: device.Identity{Name: "D1", Category: device.Door}, Payload: 1},
			{Identity: device.Identity{Name: "D2", Category: device.Door}, Payload: 2},
		})

		mp := &MockPublisher{}
		defer mp.AssertExpectations(t)
		mp.On("Publish", mock.Anything, "door/state", []byte(`1`)).Return(errors.New("broker"))
		mp.On("Publish", mock.Anything, "door/state", []byte(`2`)).Return(nil)

		i := testInterface(mc)
		_ = i.Connected(context.Background(), mp.Publish)

		i.PublishState()
	})

	t.Run("disconnecting stops publishing", func(t *testing.T) {
		mc := &MockCoordinator{}
		defer mc.AssertExpectations(t)

		mp := &MockPublisher{}
		defer mp.AssertExpectations(t)

		i := testInterface(mc)
		_ = i.Connected(context.Background(), mp.Publish)
		i.Disconnected()

		i.PublishState()
	})
}

func TestInterface_PublishState_Devices(t *testing.T) {
	t.Run("device collection is not bounded by a tick wide deadline", func(t *testing.T) {
		mc := &MockCoordinator{}
		defer mc.AssertExpectations(t)
		mc.On("Snapshot", mock.MatchedBy(func(ctx context.Context) bool {
			_, hasDeadline := ctx.Deadline()
			return !hasDeadline
		})).Return([]device.Telemetry{})

		i := testInterface(mc)
		_ = i.Connected(context.Background(), EmptyPublisher)

		i.PublishState()
	})

	t.Run("a silent door does not disconnect a healthy door in the same tick", func(t *testing.T) {
		l := logwrap.New(discard.Discard())

		silent := door.NewSession(door.DefaultConfig("a-silent"), pipeModbusClient(t, 200*time.Millisecond, nil), l)
		require.NoError(t, silent.Initialise(context.Background()))

		healthy := door.NewSession(door.DefaultConfig("b-healthy"), pipeModbusClient(t, time.Second, func(address uint16) bool {
			return address == door.DefaultOpenCoil
		}), l)
		require.NoError(t, healthy.Initialise(context.Background()))

		registry := gateway.NewRegistry(nil)
		require.NoError(t, registry.AddDoor(silent))
		require.NoError(t, registry.AddDoor(healthy))

		collector := &exporter.Collector{
			Mapper:         registry,
			EventPublisher: gateway.NullEventPublisher,
			Logger:         l,
			Clock:          func() time.Time { return time.Unix(1700000000, 0) },
		}

		var lock sync.Mutex
		published := map[string]string{}

		i := testInterface(gateway.NewCoordinator(nil, collector))
		_ = i.Connected(context.Background(), func(ctx context.Context, topic string, payload []byte) error {
			lock.Lock()
			defer lock.Unlock()

			published[string(payload)] = topic
			return nil
		})

		i.PublishState()

		assert.Equal(t, device.Disconnected, silent.ConnectionState())
		assert.Equal(t, device.Connected, healthy.ConnectionState())

		assert.Equal(t, "door/state", published[`{"door_time":1700000000,"door_name":"a-silent","current_mode":3}`])
		assert.Equal(t, "door/state", published[`{"door_time":1700000000,"door_name":"b-healthy","current_mode":2}`])
	})
}

// pipeModbusClient connects a client to an in memory peer. A nil coils function gives a peer that
// accepts requests and never answers.
func pipeModbusClient(t *testing.T, timeout time.Duration, coils func(address uint16) bool) *modbus.Client {
	server, client := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })

	go func() {
		if coils == nil {
			_, _ = io.Copy(io.Discard, server)
			return
		}

		for {
			head := make([]byte, 7)
			if _, err := io.ReadFull(server, head); err != nil {
				return
			}

			body := make([]byte, binary.BigEndian.Uint16(head[4:])-1)
			if _, err := io.ReadFull(server, body); err != nil {
				return
			}

			var bit byte
			if coils(binary.BigEndian.Uint16(body[1:3])) {
				bit = 1
			}

			out := append([]byte{}, head...)
			binary.BigEndian.PutUint16(out[4:], 4)
			out = append(out, body[0], 0x01, bit)

			if _, err := server.Write(out); err != nil {
				return
			}
		}
	}()

	return modbus.NewClient("pipe", 502, modbus.WithTimeout(timeout), modbus.WithDialer(func(ctx context.Context, network string, address string) (net.Conn, error) {
		return client, nil
	}))
}

func TestInterface_StartStop(t *testing.T) {
	t.Run("the ticker publishes until stopped", func(t *testing.T) {
		mc := &MockCoordinator{}
		mc.On("Snapshot", mock.Anything).Return([]device.Telemetry{})

		i := testInterface(mc)
		i.Interval = 5 * time.Millisecond
		_ = i.Connected(context.Background(), EmptyPublisher)

		i.Start()
		time.Sleep(30 * time.Millisecond)
		i.Stop()

		assert.NotEmpty(t, mc.Calls)
	})
}
