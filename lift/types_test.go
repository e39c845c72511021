package lift

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestParseDataType(t *testing.T) {
	t.Run("maps plc type names case insensitively", func(t *testing.T) {
		expected := map[string]DataType{
			"BOOL": Bool, "byte": Uint8, "USINT": Uint8, "SINT": Int8, "WORD": Uint16, "UINT": Uint16,
			"INT": Int16, "DWORD": Uint32, "UDINT": Uint32, "DATE": Uint32, "TIME": Uint32,
			"TIME_OF_DAY": Uint32, "DINT": Int32, "LINT": Int64, "REAL": Float32, "LREAL": Float64,
		}

		for name, dt := range expected {
			actual, ok := ParseDataType(name)
			assert.True(t, ok, name)
			assert.Equal(t, dt, actual, name)
		}
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		_, ok := ParseDataType("STRING(80)")
		assert.False(t, ok)
	})
}

func TestDataType_encodeDecode(t *testing.T) {
	t.Run("values survive a trip through their wire form", func(t *testing.T) {
		values := map[DataType]any{
			Bool: true, Uint8: uint8(200), Int8: int8(-3), Uint16: uint16(60000), Int16: int16(-300),
			Uint32: uint32(4000000000), Int32: int32(-70000), Int64: int64(-1 << 40),
			Float32: float32(1.5), Float64: float64(-2.25),
		}

		for dt, v := range values {
			data, err := dt.encode(v)
			assert.NoError(t, err, dt.String())
			assert.Len(t, data, dt.Size())

			decoded, err := dt.decode(data)
			assert.NoError(t, err, dt.String())
			assert.Equal(t, v, decoded, dt.String())
		}
	})

	t.Run("encodes little endian", func(t *testing.T) {
		data, err := Int16.encode(int16(0x0102))
		assert.NoError(t, err)
		assert.Equal(t, []byte{0x02, 0x01}, data)
	})

	t.Run("refuses values of another go type", func(t *testing.T) {
		_, err := Int8.encode(int16(1))
		assert.ErrorIs(t, err, TypeMismatch)

		_, err = Bool.encode(1)
		assert.ErrorIs(t, err, TypeMismatch)
	})

	t.Run("refuses data of the wrong size", func(t *testing.T) {
		_, err := Int16.decode([]byte{1})
		assert.ErrorIs(t, err, TypeMismatch)
	})
}
