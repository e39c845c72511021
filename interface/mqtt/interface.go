package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/logwrap"
)

type Publisher func(ctx context.Context, topic string, payload []byte) error

type mqttError string

func (m mqttError) Error() string {
	return string(m)
}

const UnknownTopic = mqttError("unknown topic")

const DefaultPublishInterval = 1 * time.Second
const MaximumPublishTime = 5 * time.Second

// Coordinator is the part of the gateway the interface drives.
type Coordinator interface {
	Command(ctx context.Context, category device.Category, payload []byte) error
	Snapshot(ctx context.Context) []device.Telemetry
}

type Topics struct {
	LiftState   string
	LiftCommand string
	DoorState   string
	DoorCommand string
}

type Interface struct {
	Coordinator Coordinator
	Topics      Topics
	Interval    time.Duration
	Logger      logwrap.Logger

	publisherLock sync.RWMutex
	publisher     Publisher
	connected     bool

	stop chan bool
	done chan struct{}
}

func (i *Interface) IncomingMessage(ctx context.Context, topic string, payload []byte) error {
	switch topic {
	case i.Topics.LiftCommand:
		return i.Coordinator.Command(ctx, device.Lift, payload)
	case i.Topics.DoorCommand:
		return i.Coordinator.Command(ctx, device.Door, payload)
	}

	return fmt.Errorf("%w: %s", UnknownTopic, topic)
}

func EmptyPublisher(ctx context.Context, topic string, payload []byte) error {
	return nil
}

func (i *Interface) Connected(ctx context.Context, publisher Publisher) error {
	i.publisherLock.Lock()
	defer i.publisherLock.Unlock()

	i.publisher = publisher
	i.connected = true

	i.Logger.LogInfo(ctx, "MQTT connected, state publishing enabled.")
	return nil
}

func (i *Interface) Disconnected() {
	i.publisherLock.Lock()
	defer i.publisherLock.Unlock()

	i.publisher = EmptyPublisher
	i.connected = false
}

func (i *Interface) currentPublisher() (Publisher, bool) {
	i.publisherLock.RLock()
	defer i.publisherLock.RUnlock()

	return i.publisher, i.connected
}

func (i *Interface) Start() {
	i.stop = make(chan bool, 1)
	i.done = make(chan struct{})

	interval := i.Interval
	if interval <= 0 {
		interval = DefaultPublishInterval
	}

	go i.run(interval)
}

func (i *Interface) Stop() {
	if i.stop != nil {
		i.stop <- true
		<-i.done
	}
}

func (i *Interface) run(interval time.Duration) {
	defer close(i.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.PublishState()
		case <-i.stop:
			return
		}
	}
}

// PublishState collects a snapshot and publishes each message on its own, nothing is collected while
// the broker connection is down. Collection carries no deadline, each device request is bounded only
// by its own socket timeout.
func (i *Interface) PublishState() {
	publisher, connected := i.currentPublisher()
	if !connected {
		return
	}

	ctx := context.Background()

	for _, telemetry := range i.Coordinator.Snapshot(ctx) {
		if err := i.publishTelemetry(ctx, publisher, telemetry); err != nil {
			i.Logger.LogError(ctx, "Failed to publish device state.", logwrap.Datum("device", telemetry.Identity.Name), logwrap.Datum("category", telemetry.Identity.Category.String()), logwrap.Err(err))
		}
	}
}

func (i *Interface) publishTelemetry(ctx context.Context, publisher Publisher, telemetry device.Telemetry) error {
	var topic string

	switch telemetry.Identity.Category {
	case device.Door:
		topic = i.Topics.DoorState
	case device.Lift:
		topic = i.Topics.LiftState
	default:
		return fmt.Errorf("%w: no state topic for %s", UnknownTopic, telemetry.Identity.Category)
	}

	payload, err := json.Marshal(telemetry.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, MaximumPublishTime)
	defer cancel()

	if err := publisher(publishCtx, topic, payload); err != nil {
		return fmt.Errorf("failed to publish data to mqtt: %w", err)
	}

	return nil
}
