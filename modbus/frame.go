package modbus

import (
	"encoding/binary"
	"fmt"
)

type FunctionCode uint8

const (
	FuncReadCoils              FunctionCode = 0x01
	FuncReadDiscreteInputs     FunctionCode = 0x02
	FuncReadHoldingRegisters   FunctionCode = 0x03
	FuncReadInputRegisters     FunctionCode = 0x04
	FuncWriteSingleCoil        FunctionCode = 0x05
	FuncWriteSingleRegister    FunctionCode = 0x06
	FuncWriteMultipleCoils     FunctionCode = 0x0f
	FuncWriteMultipleRegisters FunctionCode = 0x10
)

const exceptionFlag = 0x80

const (
	MaximumReadBits       = 2040
	MaximumReadRegisters  = 125
	MaximumWriteBits      = 1968
	MaximumWriteRegisters = 123
)

const (
	mbapHeaderLength = 7
	protocolID       = 0x0000
	coilOn           = 0xff00
	coilOff          = 0x0000

	// Largest PDU permitted by the protocol, function code included.
	maximumPDULength = 253
)

type header struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16
	UnitID        uint8
}

func (h header) marshal() []byte {
	out := make([]byte, mbapHeaderLength)
	binary.BigEndian.PutUint16(out[0:], h.TransactionID)
	binary.BigEndian.PutUint16(out[2:], h.ProtocolID)
	binary.BigEndian.PutUint16(out[4:], h.Length)
	out[6] = h.UnitID
	return out
}

func unmarshalHeader(data []byte) header {
	return header{
		TransactionID: binary.BigEndian.Uint16(data[0:]),
		ProtocolID:    binary.BigEndian.Uint16(data[2:]),
		Length:        binary.BigEndian.Uint16(data[4:]),
		UnitID:        data[6],
	}
}

// encodeFrame produces a complete ADU, the length field covers the unit id and the PDU.
func encodeFrame(transactionID uint16, unitID uint8, function FunctionCode, payload []byte) []byte {
	h := header{
		TransactionID: transactionID,
		ProtocolID:    protocolID,
		Length:        uint16(len(payload) + 2),
		UnitID:        unitID,
	}

	frame := append(h.marshal(), byte(function))
	return append(frame, payload...)
}

// decodePDU checks the function code of a response PDU and returns its payload.
func decodePDU(request FunctionCode, pdu []byte) ([]byte, error) {
	if len(pdu) < 1 {
		return nil, fmt.Errorf("%w: empty pdu", UnexpectedResponse)
	}

	switch FunctionCode(pdu[0]) {
	case request:
		return pdu[1:], nil
	case request | exceptionFlag:
		if len(pdu) < 2 {
			return nil, fmt.Errorf("%w: exception without code", UnexpectedResponse)
		}

		return nil, ExceptionError{Function: request, Code: exceptionCode(pdu[1])}
	default:
		return nil, fmt.Errorf("%w: function code 0x%02x in reply to 0x%02x", UnexpectedResponse, pdu[0], uint8(request))
	}
}

func addressAndCount(address uint16, count uint16) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:], address)
	binary.BigEndian.PutUint16(out[2:], count)
	return out
}

func packBits(values []bool) []byte {
	out := make([]byte, (len(values)+7)/8)

	for i, v := range values {
		if v {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}

	return out
}

func unpackBits(data []byte, count uint16) []bool {
	out := make([]bool, count)

	for i := range out {
		out[i] = data[i/8]&(1<<(uint(i)%8)) != 0
	}

	return out
}

// decodeBits expects a byte count prefixed bitfield of at least count bits.
func decodeBits(payload []byte, count uint16) ([]bool, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("%w: missing byte count", UnexpectedResponse)
	}

	byteCount := int(payload[0])
	if byteCount != len(payload)-1 || byteCount < (int(count)+7)/8 {
		return nil, fmt.Errorf("%w: byte count %d does not match %d bits", UnexpectedResponse, byteCount, count)
	}

	return unpackBits(payload[1:], count), nil
}

func decodeRegisters(payload []byte, count uint16) ([]uint16, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("%w: missing byte count", UnexpectedResponse)
	}

	byteCount := int(payload[0])
	if byteCount != len(payload)-1 || byteCount != int(count)*2 {
		return nil, fmt.Errorf("%w: byte count %d does not match %d registers", UnexpectedResponse, byteCount, count)
	}

	out := make([]uint16, count)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(payload[1+i*2:])
	}

	return out, nil
}

// checkEcho verifies a write reply repeats the address and value/quantity of the request.
func checkEcho(request []byte, payload []byte) error {
	if len(payload) < 4 {
		return fmt.Errorf("%w: short write reply", UnexpectedResponse)
	}

	for i := 0; i < 4; i++ {
		if request[i] != payload[i] {
			return fmt.Errorf("%w: write reply does not echo request", UnexpectedResponse)
		}
	}

	return nil
}
