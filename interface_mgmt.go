package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	gorillamux "github.com/gorilla/mux"
	"github.com/shimmeringbee/infragate/config"
	"github.com/shimmeringbee/infragate/gateway"
	"github.com/shimmeringbee/infragate/interface/http/auth"
	"github.com/shimmeringbee/infragate/interface/http/auth/external"
	"github.com/shimmeringbee/infragate/interface/http/auth/jwt"
	"github.com/shimmeringbee/infragate/interface/http/auth/null"
	"github.com/shimmeringbee/infragate/interface/http/v1"
	"github.com/shimmeringbee/infragate/interface/mqtt"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/nest"
	"net/http"
	url2 "net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

type StartedInterface struct {
	Name     string
	Shutdown func() error
}

const DefaultMQTTEventDuration = 1 * time.Second

type interfaceDependencies struct {
	Registry        *gateway.Registry
	Coordinator     *gateway.Coordinator
	EventBus        *gateway.EventBus
	PublishInterval time.Duration
}

func loadInterfaceConfigurations(dir string) ([]config.InterfaceConfig, error) {
	files, err := readConfigurationFiles(dir, ".json")
	if err != nil {
		return nil, err
	}

	var retCfgs []config.InterfaceConfig

	for _, file := range files {
		cfg := config.InterfaceConfig{Name: file.Name}

		if err := json.Unmarshal(file.Data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse interface configuration file '%s': %w", file.Path, err)
		}

		retCfgs = append(retCfgs, cfg)
	}

	return retCfgs, nil
}

func startInterfaces(cfgs []config.InterfaceConfig, deps interfaceDependencies, l logwrap.Logger) ([]StartedInterface, error) {
	var retInts []StartedInterface

	for _, cfg := range cfgs {
		if shutdown, err := startInterface(cfg, deps, l); err != nil {
			return retInts, fmt.Errorf("failed to start interface '%s': %w", cfg.Name, err)
		} else {
			retInts = append(retInts, StartedInterface{
				Name:     cfg.Name,
				Shutdown: shutdown,
			})
		}
	}

	return retInts, nil
}

func startInterface(cfg config.InterfaceConfig, deps interfaceDependencies, l logwrap.Logger) (func() error, error) {
	wl := logwrap.New(nest.Wrap(l))
	wl.AddOptionsToLogger(logwrap.Datum("interface", cfg.Name))

	switch intCfg := cfg.Config.(type) {
	case *config.HTTPInterfaceConfig:
		wl.AddOptionsToLogger(logwrap.Source("http"))
		return startHTTPInterface(*intCfg, deps, wl)
	case *config.MQTTInterfaceConfig:
		wl.AddOptionsToLogger(logwrap.Source("mqtt"))
		return startMQTTInterface(*intCfg, deps, wl)
	default:
		return nil, fmt.Errorf("unknown interface type loaded: %s", cfg.Type)
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}

	return false
}

func constructAuthenticationProvider(cfg config.HTTPAuthentication) (auth.AuthenticationProvider, error) {
	switch cfg.Type {
	case "", "null":
		return null.Authenticator{}, nil
	case "external":
		header := cfg.UserHeader
		if len(header) == 0 {
			header = external.HttpUserHeader
		}

		return external.Authenticator{UserHeader: header, CategoryHeader: cfg.CategoryHeader}, nil
	case "jwt":
		data, err := os.ReadFile(filepath.Clean(cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("failed to read jwt private key: %w", err)
		}

		key, err := jwt.ParsePrivateKey(data)
		if err != nil {
			return nil, err
		}

		ttl := jwt.DefaultTTL
		if cfg.TTL > 0 {
			ttl = time.Duration(cfg.TTL) * time.Second
		}

		return jwt.Authenticator{
			SystemIdentifier: cfg.SystemIdentifier,
			TTL:              ttl,
			KeyIdentifier:    cfg.KeyIdentifier,
			PrivateKey:       key,
		}, nil
	default:
		return nil, fmt.Errorf("unknown authentication type: %s", cfg.Type)
	}
}

func startHTTPInterface(cfg config.HTTPInterfaceConfig, deps interfaceDependencies, l logwrap.Logger) (func() error, error) {
	ap, err := constructAuthenticationProvider(cfg.Authentication)
	if err != nil {
		return nil, err
	}

	r := gorillamux.NewRouter()

	if containsString(cfg.EnabledAPIs, "v1") {
		l.LogInfo(context.Background(), "Mounting v1 API endpoint on /api/v1.")

		v1Router := v1.ConstructRouter(deps.Registry, deps.Coordinator, l, ap, deps.EventBus)
		r.PathPrefix("/api/v1").Handler(http.StripPrefix("/api/v1", v1Router))
	}

	bindAddress := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: bindAddress, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.LogError(context.Background(), "Failed to start http server.", logwrap.Err(err))
		}
	}()

	return func() error {
		return srv.Shutdown(context.Background())
	}, nil
}

func awaitToken(ctx context.Context, token pahomqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return context.DeadlineExceeded
	}
}

func mqttClientID(cfg config.MQTTInterfaceConfig) string {
	if len(cfg.ClientID) > 0 {
		return cfg.ClientID
	}

	return "infragate-" + uuid.New().String()
}

func startMQTTInterface(cfg config.MQTTInterfaceConfig, deps interfaceDependencies, l logwrap.Logger) (func() error, error) {
	if err := cfg.Topics.Validate(); err != nil {
		return nil, err
	}

	clientId := mqttClientID(cfg)

	l.LogInfo(context.Background(), "Constructing new MQTT client.", logwrap.Datum("clientId", clientId), logwrap.Datum("server", cfg.Server))

	clientOptions := pahomqtt.NewClientOptions()
	clientOptions.ClientID = clientId

	if url, err := url2.Parse(cfg.Server); err != nil {
		l.LogError(context.Background(), "Failed to parse MQTT server URL.", logwrap.Err(err))
		return nil, err
	} else {
		clientOptions.Servers = []*url2.URL{url}
	}

	i := &mqtt.Interface{
		Coordinator: deps.Coordinator,
		Topics: mqtt.Topics{
			LiftState:   cfg.Topics.LiftState,
			LiftCommand: cfg.Topics.LiftCommand,
			DoorState:   cfg.Topics.DoorState,
			DoorCommand: cfg.Topics.DoorCommand,
		},
		Interval: deps.PublishInterval,
		Logger:   l,
	}
	i.Disconnected()

	clientOptions.OnConnect = func(client pahomqtt.Client) {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultMQTTEventDuration)
		defer cancel()

		l.LogInfo(ctx, "MQTT client successfully connected.", logwrap.Datum("clientId", clientId), logwrap.Datum("server", cfg.Server))

		for _, topic := range []string{cfg.Topics.LiftCommand, cfg.Topics.DoorCommand} {
			subscribeToken := client.Subscribe(topic, cfg.QOS, func(client pahomqtt.Client, message pahomqtt.Message) {
				// Commands run to completion, device requests are bounded by their own socket timeouts.
				msgCtx := context.Background()

				l.LogInfo(msgCtx, "Received command.", logwrap.Datum("topic", message.Topic()))

				if err := i.IncomingMessage(msgCtx, message.Topic(), message.Payload()); err != nil {
					l.LogWarn(msgCtx, "Failed to handle incoming message.", logwrap.Datum("topic", message.Topic()), logwrap.Err(err))
				}
			})

			if err := awaitToken(ctx, subscribeToken); err != nil {
				l.LogError(ctx, "Failed to subscribe to topic in MQTT.", logwrap.Datum("topic", topic), logwrap.Err(err))
			}
		}

		if err := i.Connected(ctx, func(ctx context.Context, topic string, payload []byte) error {
			token := client.Publish(topic, cfg.QOS, cfg.Retained, payload)
			return awaitToken(ctx, token)
		}); err != nil {
			l.LogError(ctx, "Failed to execute connection handler in MQTT interface.", logwrap.Err(err))
		}
	}

	clientOptions.SetConnectionLostHandler(func(client pahomqtt.Client, err error) {
		l.LogInfo(context.Background(), "MQTT client disconnected.", logwrap.Datum("clientId", clientId), logwrap.Datum("server", cfg.Server), logwrap.Err(err))
		i.Disconnected()
	})

	if cfg.Credentials != nil {
		clientOptions.SetUsername(cfg.Credentials.Username)
		clientOptions.SetPassword(os.ExpandEnv(cfg.Credentials.Password))
	}

	if cfg.TLS != nil {
		tlsConfig, err := constructTLSConfig(*cfg.TLS, l)
		if err != nil {
			return nil, err
		}

		clientOptions.SetTLSConfig(tlsConfig)
	}

	i.Start()

	client := pahomqtt.NewClient(clientOptions)
	stopRetry := make(chan struct{})

	go func() {
		ctx := context.Background()

		retry := time.NewTicker(1 * time.Second)
		defer retry.Stop()

		for {
			select {
			case <-retry.C:
				if token := client.Connect(); token.Wait() && token.Error() != nil {
					l.LogError(ctx, "Failed initial connection to MQTT server.", logwrap.Datum("clientId", clientId), logwrap.Datum("server", cfg.Server), logwrap.Err(token.Error()))
				} else {
					l.LogInfo(ctx, "Initial MQTT connection call completed.", logwrap.Datum("clientId", clientId), logwrap.Datum("server", cfg.Server))
					return
				}
			case <-stopRetry:
				return
			}
		}
	}()

	return func() error {
		close(stopRetry)
		client.Disconnect(1500)
		i.Stop()
		return nil
	}, nil
}

// constructTLSConfig builds the mutual TLS configuration used by cloud IoT brokers.
func constructTLSConfig(cfg config.MQTTTLS, l logwrap.Logger) (*tls.Config, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.SkipCertificateVerification}

	if cfg.SkipCertificateVerification {
		l.LogWarn(context.Background(), "Set to ignore remote TLS certificate, this is considered insecure.")
	}

	if len(cfg.Cert) > 0 {
		cert, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate/key for mqtt: %w", err)
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	var certPool *x509.CertPool
	var err error

	if cfg.IgnoreSystemRootCertificates {
		l.LogInfo(context.Background(), "Configured to ignore system root certificates, ensure you are providing your own.")
		certPool = x509.NewCertPool()
	} else {
		certPool, err = x509.SystemCertPool()
		if err != nil {
			if runtime.GOOS == "windows" {
				l.LogWarn(context.Background(), "Failed to load system certificate pool for root CAs, you must provide the CA root certificate for your servers trust chain.", logwrap.Err(err))
				certPool = x509.NewCertPool()
			} else {
				return nil, fmt.Errorf("failed to load system certificate pool: %w", err)
			}
		}
	}

	if len(cfg.CACert) > 0 {
		caCerts, err := os.ReadFile(filepath.Clean(cfg.CACert))
		if err != nil {
			return nil, fmt.Errorf("failed to load CA TLS certificates for mqtt: %w", err)
		}

		if !certPool.AppendCertsFromPEM(caCerts) {
			return nil, fmt.Errorf("no CA certificates found in %s", cfg.CACert)
		}
	}

	tlsConfig.RootCAs = certPool

	return tlsConfig, nil
}
