package lift

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// DataType is the Go representation a remote variable is decoded to.
type DataType uint8

const (
	Invalid DataType = iota
	Bool
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Int64
	Float32
	Float64
)

var plcTypes = map[string]DataType{
	"BOOL":        Bool,
	"BYTE":        Uint8,
	"USINT":       Uint8,
	"SINT":        Int8,
	"WORD":        Uint16,
	"UINT":        Uint16,
	"INT":         Int16,
	"DWORD":       Uint32,
	"UDINT":       Uint32,
	"DATE":        Uint32,
	"TIME":        Uint32,
	"TIME_OF_DAY": Uint32,
	"LTIME":       Uint32,
	"DINT":        Int32,
	"LINT":        Int64,
	"REAL":        Float32,
	"LREAL":       Float64,
}

// ParseDataType maps a PLC type name onto the type it is exchanged as.
func ParseDataType(plcType string) (DataType, bool) {
	t, found := plcTypes[strings.ToUpper(strings.TrimSpace(plcType))]
	return t, found
}

func (d DataType) String() string {
	switch d {
	case Bool:
		return "bool"
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Uint16:
		return "uint16"
	case Int16:
		return "int16"
	case Uint32:
		return "uint32"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "invalid"
	}
}

func (d DataType) Size() int {
	switch d {
	case Bool, Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

// encode produces the little endian wire form of v, which must be of the Go type d represents.
func (d DataType) encode(v any) ([]byte, error) {
	out := make([]byte, d.Size())

	switch tv := v.(type) {
	case bool:
		if d != Bool {
			break
		}
		if tv {
			out[0] = 1
		}
		return out, nil
	case uint8:
		if d != Uint8 {
			break
		}
		out[0] = tv
		return out, nil
	case int8:
		if d != Int8 {
			break
		}
		out[0] = byte(tv)
		return out, nil
	case uint16:
		if d != Uint16 {
			break
		}
		binary.LittleEndian.PutUint16(out, tv)
		return out, nil
	case int16:
		if d != Int16 {
			break
		}
		binary.LittleEndian.PutUint16(out, uint16(tv))
		return out, nil
	case uint32:
		if d != Uint32 {
			break
		}
		binary.LittleEndian.PutUint32(out, tv)
		return out, nil
	case int32:
		if d != Int32 {
			break
		}
		binary.LittleEndian.PutUint32(out, uint32(tv))
		return out, nil
	case int64:
		if d != Int64 {
			break
		}
		binary.LittleEndian.PutUint64(out, uint64(tv))
		return out, nil
	case float32:
		if d != Float32 {
			break
		}
		binary.LittleEndian.PutUint32(out, math.Float32bits(tv))
		return out, nil
	case float64:
		if d != Float64 {
			break
		}
		binary.LittleEndian.PutUint64(out, math.Float64bits(tv))
		return out, nil
	}

	return nil, fmt.Errorf("%w: %T written to %s", TypeMismatch, v, d)
}

func (d DataType) decode(data []byte) (any, error) {
	if d == Invalid || len(data) != d.Size() {
		return nil, fmt.Errorf("%w: %d bytes read for %s", TypeMismatch, len(data), d)
	}

	switch d {
	case Bool:
		return data[0] != 0, nil
	case Uint8:
		return data[0], nil
	case Int8:
		return int8(data[0]), nil
	case Uint16:
		return binary.LittleEndian.Uint16(data), nil
	case Int16:
		return int16(binary.LittleEndian.Uint16(data)), nil
	case Uint32:
		return binary.LittleEndian.Uint32(data), nil
	case Int32:
		return int32(binary.LittleEndian.Uint32(data)), nil
	case Int64:
		return int64(binary.LittleEndian.Uint64(data)), nil
	case Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
	}
}
