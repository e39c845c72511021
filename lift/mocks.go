package lift

import (
	"context"
	"github.com/stretchr/testify/mock"
)

var _ Remote = (*MockRemote)(nil)

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRemote) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRemote) ReadState(ctx context.Context) (uint16, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint16), args.Error(1)
}

func (m *MockRemote) Resolve(ctx context.Context, name string) (uint32, string, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(uint32), args.String(1), args.Error(2)
}

func (m *MockRemote) Release(ctx context.Context, handle uint32) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

func (m *MockRemote) Read(ctx context.Context, handle uint32, size int) ([]byte, error) {
	args := m.Called(ctx, handle, size)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRemote) Write(ctx context.Context, handle uint32, data []byte) error {
	args := m.Called(ctx, handle, data)
	return args.Error(0)
}
