package door

import (
	"context"
	"github.com/stretchr/testify/mock"
)

var _ Link = (*MockLink)(nil)

type MockLink struct {
	mock.Mock
}

func (m *MockLink) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLink) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockLink) ReadCoils(ctx context.Context, address uint16, count uint16) ([]bool, error) {
	args := m.Called(ctx, address, count)

	if v := args.Get(0); v != nil {
		return v.([]bool), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockLink) WriteCoil(ctx context.Context, address uint16, value bool) error {
	args := m.Called(ctx, address, value)
	return args.Error(0)
}
