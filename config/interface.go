package config

import (
	"encoding/json"
	"fmt"
	"github.com/tidwall/gjson"
)

type InterfaceConfig struct {
	Name   string `json:"-"`
	Type   string
	Config interface{}
}

func (g *InterfaceConfig) UnmarshalJSON(data []byte) error {
	if result := gjson.GetBytes(data, "Type"); !result.Exists() {
		return fmt.Errorf("failed to find interface type information")
	} else {
		g.Type = result.String()
	}

	switch g.Type {
	case "http":
		g.Config = &HTTPInterfaceConfig{}
	case "mqtt":
		g.Config = &MQTTInterfaceConfig{QOS: 1}
	default:
		return fmt.Errorf("unknown interface configuration type: %s", g.Type)
	}

	if result := gjson.GetBytes(data, "Config"); result.Exists() {
		return json.Unmarshal([]byte(result.Raw), g.Config)
	} else {
		return fmt.Errorf("unable to find Config stanza: %s", g.Type)
	}
}

type HTTPInterfaceConfig struct {
	Port        int
	EnabledAPIs []string

	Authentication HTTPAuthentication
}

type HTTPAuthentication struct {
	Type string

	UserHeader     string
	CategoryHeader string

	SystemIdentifier string
	KeyIdentifier    string
	PrivateKey       string
	TTL              int
}

type MQTTInterfaceConfig struct {
	Server   string
	ClientID string

	TLS         *MQTTTLS
	Credentials *MQTTCredentials

	Retained bool
	QOS      byte

	Topics MQTTTopics
}

type MQTTTopics struct {
	LiftState   string
	LiftCommand string
	DoorState   string
	DoorCommand string
}

func (t MQTTTopics) Validate() error {
	for name, topic := range map[string]string{
		"LiftState":   t.LiftState,
		"LiftCommand": t.LiftCommand,
		"DoorState":   t.DoorState,
		"DoorCommand": t.DoorCommand,
	} {
		if len(topic) == 0 {
			return fmt.Errorf("%w: topic %s", MissingField, name)
		}
	}

	return nil
}

type MQTTTLS struct {
	IgnoreSystemRootCertificates bool
	SkipCertificateVerification  bool
	Key                          string
	Cert                         string
	CACert                       string
}

type MQTTCredentials struct {
	Username string
	Password string
}
