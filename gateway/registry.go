package gateway

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shimmeringbee/infragate/device"
)

type registryError string

func (e registryError) Error() string {
	return string(e)
}

const DuplicateDevice = registryError("device name already registered")

type Mapper interface {
	Doors() []Door
	Lifts() []Lift
	Door(string) (Door, bool)
	Lift(string) (Lift, bool)
}

var _ Mapper = (*Registry)(nil)

// Registry holds every device session by name, names are unique within a category.
type Registry struct {
	lock sync.RWMutex

	doorByName map[string]Door
	liftByName map[string]Lift

	eventPublisher EventPublisher
}

func NewRegistry(publisher EventPublisher) *Registry {
	if publisher == nil {
		publisher = nullEventPublisher{}
	}

	return &Registry{
		doorByName:     map[string]Door{},
		liftByName:     map[string]Lift{},
		eventPublisher: publisher,
	}
}

func (r *Registry) AddDoor(d Door) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, found := r.doorByName[d.Name()]; found {
		return fmt.Errorf("%w: door %s", DuplicateDevice, d.Name())
	}

	r.doorByName[d.Name()] = d
	r.eventPublisher.Publish(DeviceAdded{Identity: device.Identity{Name: d.Name(), Category: device.Door}})

	return nil
}

func (r *Registry) AddLift(l Lift) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, found := r.liftByName[l.Name()]; found {
		return fmt.Errorf("%w: lift %s", DuplicateDevice, l.Name())
	}

	r.liftByName[l.Name()] = l
	r.eventPublisher.Publish(DeviceAdded{Identity: device.Identity{Name: l.Name(), Category: device.Lift}})

	return nil
}

func (r *Registry) Door(name string) (Door, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	d, found := r.doorByName[name]
	return d, found
}

func (r *Registry) Lift(name string) (Lift, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	l, found := r.liftByName[name]
	return l, found
}

// Doors returns all doors ordered by name.
func (r *Registry) Doors() []Door {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := make([]Door, 0, len(r.doorByName))
	for _, d := range r.doorByName {
		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})

	return result
}

// Lifts returns all lifts ordered by name.
func (r *Registry) Lifts() []Lift {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := make([]Lift, 0, len(r.liftByName))
	for _, l := range r.liftByName {
		result = append(result, l)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})

	return result
}
