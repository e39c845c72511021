package gateway

import (
	"context"

	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/door"
	"github.com/shimmeringbee/infragate/lift"
	"github.com/stretchr/testify/mock"
)

var _ Mapper = (*MockMapper)(nil)

type MockMapper struct {
	mock.Mock
}

func (m *MockMapper) Doors() []Door {
	args := m.Called()
	return args.Get(0).([]Door)
}

func (m *MockMapper) Lifts() []Lift {
	args := m.Called()
	return args.Get(0).([]Lift)
}

func (m *MockMapper) Door(name string) (Door, bool) {
	args := m.Called(name)

	if d, ok := args.Get(0).(Door); ok {
		return d, args.Bool(1)
	}

	return nil, args.Bool(1)
}

func (m *MockMapper) Lift(name string) (Lift, bool) {
	args := m.Called(name)

	if l, ok := args.Get(0).(Lift); ok {
		return l, args.Bool(1)
	}

	return nil, args.Bool(1)
}

var _ EventPublisher = (*MockEventPublisher)(nil)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(e any) {
	m.Called(e)
}

var _ Door = (*MockDoor)(nil)

type MockDoor struct {
	mock.Mock
}

func (m *MockDoor) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockDoor) ConnectionState() device.ConnectionState {
	args := m.Called()
	return args.Get(0).(device.ConnectionState)
}

func (m *MockDoor) CheckConnection(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockDoor) GetDoorState(ctx context.Context) door.State {
	args := m.Called(ctx)
	return args.Get(0).(door.State)
}

func (m *MockDoor) ActuateDoor(ctx context.Context, open bool) device.Outcome {
	args := m.Called(ctx, open)
	return args.Get(0).(device.Outcome)
}

var _ Lift = (*MockLift)(nil)

type MockLift struct {
	mock.Mock
}

func (m *MockLift) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLift) ConnectionState() device.ConnectionState {
	args := m.Called()
	return args.Get(0).(device.ConnectionState)
}

func (m *MockLift) ConnectionCheck(ctx context.Context) (uint16, bool) {
	args := m.Called(ctx)
	return args.Get(0).(uint16), args.Bool(1)
}

func (m *MockLift) RunState() uint16 {
	args := m.Called()
	return args.Get(0).(uint16)
}

func (m *MockLift) AvailableFloors() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockLift) AvailableModes() []int {
	args := m.Called()
	return args.Get(0).([]int)
}

func (m *MockLift) SessionID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLift) SetSessionID(id string) {
	m.Called(id)
}

func (m *MockLift) CurrentFloor(ctx context.Context) (string, bool) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1)
}

func (m *MockLift) DestinationFloor(ctx context.Context) (string, bool) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1)
}

func (m *MockLift) CurrentMode(ctx context.Context) lift.Mode {
	args := m.Called(ctx)
	return args.Get(0).(lift.Mode)
}

func (m *MockLift) DoorState(ctx context.Context) int16 {
	args := m.Called(ctx)
	return args.Get(0).(int16)
}

func (m *MockLift) MotionState(ctx context.Context) int16 {
	args := m.Called(ctx)
	return args.Get(0).(int16)
}

func (m *MockLift) CommandLift(ctx context.Context, floor string) device.Outcome {
	args := m.Called(ctx, floor)
	return args.Get(0).(device.Outcome)
}

func (m *MockLift) EndLift(ctx context.Context) device.Outcome {
	args := m.Called(ctx)
	return args.Get(0).(device.Outcome)
}
