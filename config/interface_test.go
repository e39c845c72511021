package config

import (
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestParseInterface(t *testing.T) {
	t.Run("errors if json is invalid", func(t *testing.T) {
		data := []byte(`"`)
		gw := InterfaceConfig{}

		err := json.Unmarshal(data, &gw)
		assert.Error(t, err)
	})

	t.Run("errors if type is unknown", func(t *testing.T) {
		data := []byte(`{"Type":"unknown"}`)
		gw := InterfaceConfig{}

		err := json.Unmarshal(data, &gw)
		assert.Error(t, err)
	})

	t.Run("http gateway", func(t *testing.T) {
		t.Run("parses successfully", func(t *testing.T) {
			data := []byte(`{"Type":"http","Config":{"Port":3000,"EnabledAPIs":["v1"]}}`)
			gw := InterfaceConfig{}

			err := json.Unmarshal(data, &gw)
			assert.NoError(t, err)

			httpInt, ok := gw.Config.(*HTTPInterfaceConfig)
			assert.True(t, ok)

			assert.Equal(t, 3000, httpInt.Port)
			assert.Contains(t, httpInt.EnabledAPIs, "v1")
		})
	})

	t.Run("mqtt interface", func(t *testing.T) {
		t.Run("parses topics and defaults qos to at least once", func(t *testing.T) {
			data := []byte(`{"Type":"mqtt","Config":{"Server":"tls://broker:8883","ClientID":"gw","TLS":{"Cert":"c.pem","Key":"k.pem","CACert":"ca.pem"},"Topics":{"LiftState":"ls","LiftCommand":"lc","DoorState":"ds","DoorCommand":"dc"}}}`)
			gw := InterfaceConfig{}

			err := json.Unmarshal(data, &gw)
			assert.NoError(t, err)

			mqttInt, ok := gw.Config.(*MQTTInterfaceConfig)
			assert.True(t, ok)

			assert.Equal(t, byte(1), mqttInt.QOS)
			assert.Equal(t, "gw", mqttInt.ClientID)
			assert.Equal(t, "ca.pem", mqttInt.TLS.CACert)
			assert.NoError(t, mqttInt.Topics.Validate())
		})

		t.Run("a missing topic fails validation", func(t *testing.T) {
			topics := MQTTTopics{LiftState: "ls", LiftCommand: "lc", DoorState: "ds"}
			assert.ErrorIs(t, topics.Validate(), MissingField)
		})
	})

	t.Run("http authentication stanza is parsed", func(t *testing.T) {
		data := []byte(`{"Type":"http","Config":{"Port":3000,"Authentication":{"Type":"external","UserHeader":"X-User"}}}`)
		gw := InterfaceConfig{}

		assert.NoError(t, json.Unmarshal(data, &gw))

		httpInt := gw.Config.(*HTTPInterfaceConfig)
		assert.Equal(t, "external", httpInt.Authentication.Type)
		assert.Equal(t, "X-User", httpInt.Authentication.UserHeader)
	})
}
