package modbus

import "fmt"

type modbusError string

func (e modbusError) Error() string {
	return string(e)
}

const BadInput = modbusError("bad input")
const BadConnection = modbusError("bad connection")
const UnexpectedResponse = modbusError("unexpected response")
const ProtocolError = modbusError("protocol exception")

// NotConnected is returned when a request is made without an open socket, it is a BadConnection.
var NotConnected = fmt.Errorf("%w: not connected", BadConnection)

type ExceptionCode uint8

const (
	IllegalFunction                    ExceptionCode = 0x01
	IllegalDataAddress                 ExceptionCode = 0x02
	IllegalDataValue                   ExceptionCode = 0x03
	ServerDeviceFailure                ExceptionCode = 0x04
	Acknowledge                        ExceptionCode = 0x05
	ServerDeviceBusy                   ExceptionCode = 0x06
	NegativeAcknowledge                ExceptionCode = 0x07
	MemoryParityError                  ExceptionCode = 0x08
	GatewayPathUnavailable             ExceptionCode = 0x0a
	GatewayTargetDeviceFailedToRespond ExceptionCode = 0x0b
	UnknownException                   ExceptionCode = 0xff
)

func exceptionCode(b byte) ExceptionCode {
	switch c := ExceptionCode(b); c {
	case IllegalFunction, IllegalDataAddress, IllegalDataValue, ServerDeviceFailure, Acknowledge,
		ServerDeviceBusy, NegativeAcknowledge, MemoryParityError, GatewayPathUnavailable, GatewayTargetDeviceFailedToRespond:
		return c
	default:
		return UnknownException
	}
}

func (c ExceptionCode) String() string {
	switch c {
	case IllegalFunction:
		return "illegal function"
	case IllegalDataAddress:
		return "illegal data address"
	case IllegalDataValue:
		return "illegal data value"
	case ServerDeviceFailure:
		return "server device failure"
	case Acknowledge:
		return "acknowledge"
	case ServerDeviceBusy:
		return "server device busy"
	case NegativeAcknowledge:
		return "negative acknowledge"
	case MemoryParityError:
		return "memory parity error"
	case GatewayPathUnavailable:
		return "gateway path unavailable"
	case GatewayTargetDeviceFailedToRespond:
		return "gateway target device failed to respond"
	default:
		return "unknown exception"
	}
}

// ExceptionError is an exception reply from the remote device.
type ExceptionError struct {
	Function FunctionCode
	Code     ExceptionCode
}

func (e ExceptionError) Error() string {
	return fmt.Sprintf("%s: function 0x%02x: %s", ProtocolError, uint8(e.Function), e.Code)
}

func (e ExceptionError) Unwrap() error {
	return ProtocolError
}
