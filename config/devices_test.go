package config

import (
	"testing"

	"github.com/shimmeringbee/infragate/lift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doorsYAML = `
front:
  modbusIP: 10.0.0.5
  modbusPort: 502
  retries: 3
  slaveID: 1
back:
  modbusIP: 10.0.0.6
  modbusPort: 502
  retries: 1
  slaveID: 2
  heartbeatCoil: 12
`

const liftsYAML = `
lift1:
  remoteIP: 10.0.1.5
  remoteNetID: 10.0.1.5.1.1
  localNetID: 10.0.1.100.1.1
  available_floors: ["G", "1", "2"]
  available_modes: [1, 2]
  variables:
    MAIN.bLiftTask: liftTask
    MAIN.bEndLiftTask: endLiftTask
    MAIN.iRobotDestinationFloor: robotDestinationFloor
    MAIN.iCurrentFloor: liftCurrentFloor
    MAIN.iDestinationFloor: liftDestinationFloor
    MAIN.iDoorState: liftDoorState
    MAIN.iMotionState: liftMotionState
    MAIN.bFireAlarm: fireAlarm
    MAIN.bTurnKeyToManual: turnKeyToManual
    MAIN.bAGVMode: agvMode
`

func TestParseDoors(t *testing.T) {
	t.Run("parses doors in name order", func(t *testing.T) {
		doors, err := ParseDoors([]byte(doorsYAML))
		require.NoError(t, err)
		require.Len(t, doors, 2)

		assert.Equal(t, "back", doors[0].Name)
		assert.Equal(t, "10.0.0.6", doors[0].ModbusIP)
		require.NotNil(t, doors[0].HeartbeatCoil)
		assert.Equal(t, uint16(12), *doors[0].HeartbeatCoil)
		assert.Nil(t, doors[0].OpenCoil)

		assert.Equal(t, "front", doors[1].Name)
		assert.Equal(t, 3, doors[1].Retries)
		assert.NoError(t, doors[1].Validate())
	})

	t.Run("errors if yaml is invalid", func(t *testing.T) {
		_, err := ParseDoors([]byte("front: ["))
		assert.Error(t, err)
	})

	t.Run("a door missing its address fails validation", func(t *testing.T) {
		cfg := DoorConfig{Name: "front", ModbusPort: 502, Retries: 1, SlaveID: 1}
		assert.ErrorIs(t, cfg.Validate(), MissingField)
	})

	t.Run("a door without retries fails validation", func(t *testing.T) {
		cfg := DoorConfig{Name: "front", ModbusIP: "h", ModbusPort: 502, SlaveID: 1}
		assert.ErrorIs(t, cfg.Validate(), MissingField)
	})
}

func TestParseLifts(t *testing.T) {
	t.Run("parses lifts with their variables keyed by alias", func(t *testing.T) {
		lifts, err := ParseLifts([]byte(liftsYAML))
		require.NoError(t, err)
		require.Len(t, lifts, 1)

		l := lifts[0]
		assert.Equal(t, "lift1", l.Name)
		assert.Equal(t, []string{"G", "1", "2"}, l.AvailableFloors)
		assert.Equal(t, []int{1, 2}, l.AvailableModes)
		assert.NoError(t, l.Validate())

		variables, err := l.LiftVariables()
		require.NoError(t, err)
		assert.Equal(t, lift.Variable{Name: "MAIN.bLiftTask", Type: lift.Bool}, variables[lift.AliasLiftTask])
		assert.Equal(t, lift.Variable{Name: "MAIN.iCurrentFloor", Type: lift.Int8}, variables[lift.AliasCurrentFloor])
	})

	t.Run("an unknown alias fails validation", func(t *testing.T) {
		cfg := LiftConfig{
			Name:            "lift1",
			RemoteIP:        "h",
			RemoteNetID:     "1.2.3.4.1.1",
			LocalNetID:      "1.2.3.5.1.1",
			AvailableFloors: []string{},
			AvailableModes:  []int{},
			Variables:       map[string]string{"MAIN.x": "notAnAlias"},
		}

		assert.ErrorIs(t, cfg.Validate(), UnknownAlias)
	})

	t.Run("a lift missing any alias fails validation", func(t *testing.T) {
		lifts, err := ParseLifts([]byte(liftsYAML))
		require.NoError(t, err)

		for remote, alias := range lifts[0].Variables {
			cfg := lifts[0]
			cfg.Variables = map[string]string{}

			for r, a := range lifts[0].Variables {
				if r != remote {
					cfg.Variables[r] = a
				}
			}

			err := cfg.Validate()
			require.ErrorIs(t, err, MissingField, alias)
			assert.Contains(t, err.Error(), alias)
		}
	})

	t.Run("a lift without floors fails validation", func(t *testing.T) {
		cfg := LiftConfig{Name: "lift1", RemoteIP: "h", RemoteNetID: "a", LocalNetID: "b", AvailableModes: []int{1}}
		assert.ErrorIs(t, cfg.Validate(), MissingField)
	})
}
