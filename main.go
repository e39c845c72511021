package main

import (
	"context"
	"github.com/shimmeringbee/infragate/gateway"
	"github.com/shimmeringbee/infragate/interface/converters/exporter"
	"github.com/shimmeringbee/infragate/interface/converters/invoker"
	lw "github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/golog"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

const EventLogBufferSize = 64

func main() {
	ctx := context.Background()
	l := lw.New(golog.Wrap(log.New(os.Stderr, "", log.LstdFlags)))

	l.LogInfo(ctx, "Shimmering Bee: Infragate - Starting...")

	loadEnvironment(ctx, l)

	settings := parseSettings(ctx, l, os.Args[1:])

	l.LogInfo(ctx, "Directory enumeration complete.", lw.Datum("directories", settings.Directories))

	if newLogger, err := configureLogging(filepath.Join(settings.Directories.Config, "logging"), settings.Directories.Log, l); err != nil {
		l.LogFatal(ctx, "Failed to load logging configuration.", lw.Err(err))
	} else {
		l = newLogger
	}

	doorCfgs, liftCfgs, err := loadDeviceConfigurations(filepath.Join(settings.Directories.Config, "devices"))
	if err != nil {
		l.LogFatal(ctx, "Failed to load device configurations.", lw.Err(err))
	}

	l.LogInfo(ctx, "Loaded device configurations.", lw.Datum("doorCount", len(doorCfgs)), lw.Datum("liftCount", len(liftCfgs)))

	interfaceCfgs, err := loadInterfaceConfigurations(filepath.Join(settings.Directories.Config, "interfaces"))
	if err != nil {
		l.LogFatal(ctx, "Failed to load interface configurations.", lw.Err(err))
	}

	eventbus := gateway.NewEventBus()

	eventCh := make(chan any, EventLogBufferSize)
	eventbus.Subscribe(eventCh)
	go logEvents(ctx, eventCh, l)

	registry := gateway.NewRegistry(eventbus)

	router := &invoker.Router{
		Mapper:         registry,
		EventPublisher: eventbus,
		Logger:         l,
	}

	collector := &exporter.Collector{
		Mapper:         registry,
		EventPublisher: eventbus,
		Logger:         l,
	}

	coordinator := gateway.NewCoordinator(router, collector)

	l.LogInfo(ctx, "Starting devices.")
	startedDevices := startDevices(ctx, doorCfgs, liftCfgs, registry, l)

	l.LogInfo(ctx, "Starting interfaces.")
	startedInterfaces, err := startInterfaces(interfaceCfgs, interfaceDependencies{
		Registry:        registry,
		Coordinator:     coordinator,
		EventBus:        eventbus,
		PublishInterval: settings.PublishInterval,
	}, l)
	if err != nil {
		l.LogFatal(ctx, "Failed to start interfaces.", lw.Err(err))
	}

	l.LogInfo(ctx, "Infragate ready.")

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	s := <-signalCh
	l.LogInfo(ctx, "Signal received, shutting down.", lw.Datum("signal", s.String()))

	for _, intf := range startedInterfaces {
		l.LogInfo(ctx, "Shutting down interface.", lw.Datum("interface", intf.Name))

		if err := intf.Shutdown(); err != nil {
			l.LogError(ctx, "Failed to shutdown interface.", lw.Err(err), lw.Datum("interface", intf.Name))
		}
	}

	coordinator.Exclusive(func() {
		for _, dev := range startedDevices {
			l.LogInfo(ctx, "Shutting down device.", lw.Datum("name", dev.Identity.Name), lw.Datum("category", dev.Identity.Category.String()))

			if err := dev.Shutdown(); err != nil {
				l.LogError(ctx, "Failed to shutdown device.", lw.Err(err), lw.Datum("name", dev.Identity.Name))
			}
		}
	})

	eventbus.Unsubscribe(eventCh)
	close(eventCh)

	l.LogInfo(ctx, "Shut down complete.")
}

// logEvents records gateway events until the channel is closed.
func logEvents(ctx context.Context, ch chan any, l lw.Logger) {
	for e := range ch {
		logEvent(ctx, e, l)
	}
}

func logEvent(ctx context.Context, e any, l lw.Logger) {
	switch ce := e.(type) {
	case gateway.DeviceAdded:
		l.LogInfo(ctx, "Device registered.", lw.Datum("name", ce.Identity.Name), lw.Datum("category", ce.Identity.Category.String()))
	case gateway.CommandRejected:
		l.LogWarn(ctx, "Command rejected.", lw.Datum("name", ce.Name), lw.Datum("category", ce.Category.String()), lw.Datum("reason", ce.Reason))
	case gateway.CommandDispatched:
		l.LogInfo(ctx, "Command dispatched.", lw.Datum("name", ce.Identity.Name), lw.Datum("category", ce.Identity.Category.String()), lw.Datum("action", ce.Action), lw.Datum("outcome", ce.Outcome.String()))
	case gateway.ConnectionStateChanged:
		l.LogWarn(ctx, "Device connection state changed.", lw.Datum("name", ce.Identity.Name), lw.Datum("category", ce.Identity.Category.String()), lw.Datum("from", ce.From.String()), lw.Datum("to", ce.To.String()))
	}
}
