package gateway

import (
	"testing"

	"github.com/shimmeringbee/infragate/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func namedDoor(name string) *MockDoor {
	d := &MockDoor{}
	d.On("Name").Return(name)
	return d
}

func namedLift(name string) *MockLift {
	l := &MockLift{}
	l.On("Name").Return(name)
	return l
}

func TestRegistry(t *testing.T) {
	t.Run("added devices are found by exact name within their category", func(t *testing.T) {
		r := NewRegistry(NullEventPublisher)

		d := namedDoor("front")
		l := namedLift("front")

		assert.NoError(t, r.AddDoor(d))
		assert.NoError(t, r.AddLift(l))

		foundDoor, found := r.Door("front")
		assert.True(t, found)
		assert.Equal(t, d, foundDoor)

		foundLift, found := r.Lift("front")
		assert.True(t, found)
		assert.Equal(t, l, foundLift)

		_, found = r.Door("Front")
		assert.False(t, found)
	})

	t.Run("duplicate names within a category are refused", func(t *testing.T) {
		r := NewRegistry(NullEventPublisher)

		assert.NoError(t, r.AddDoor(namedDoor("front")))
		assert.ErrorIs(t, r.AddDoor(namedDoor("front")), DuplicateDevice)
	})

	t.Run("listings are ordered by name", func(t *testing.T) {
		r := NewRegistry(NullEventPublisher)

		_ = r.AddLift(namedLift("b"))
		_ = r.AddLift(namedLift("a"))

		lifts := r.Lifts()
		assert.Len(t, lifts, 2)
		assert.Equal(t, "a", lifts[0].Name())
		assert.Equal(t, "b", lifts[1].Name())
	})

	t.Run("adding a device publishes an event", func(t *testing.T) {
		mep := &MockEventPublisher{}
		defer mep.AssertExpectations(t)

		mep.On("Publish", DeviceAdded{Identity: device.Identity{Name: "front", Category: device.Door}})

		r := NewRegistry(mep)
		assert.NoError(t, r.AddDoor(namedDoor("front")))
	})

	t.Run("mapper mock returns absent devices as nil", func(t *testing.T) {
		m := &MockMapper{}
		defer m.AssertExpectations(t)

		m.On("Door", mock.Anything).Return(nil, false)

		d, found := m.Door("none")
		assert.Nil(t, d)
		assert.False(t, found)
	})
}
