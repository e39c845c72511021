package ads

import "fmt"

type adsError string

func (e adsError) Error() string {
	return string(e)
}

const BadConnection = adsError("bad connection")
const BadNetID = adsError("bad net id")
const ShortReply = adsError("short reply")
const UnexpectedResponse = adsError("unexpected response")
const ProtocolError = adsError("device returned error")

var NotConnected = fmt.Errorf("%w: not connected", BadConnection)

// DeviceError is a non zero result code returned in an AMS header or ADS reply.
type DeviceError struct {
	Code uint32
}

const (
	CodeTargetPortNotFound    uint32 = 0x006
	CodeTargetMachineNotFound uint32 = 0x007
	CodeServiceNotSupported   uint32 = 0x701
	CodeInvalidIndexGroup     uint32 = 0x702
	CodeInvalidIndexOffset    uint32 = 0x703
	CodeInvalidSize           uint32 = 0x705
	CodeInvalidData           uint32 = 0x706
	CodeSymbolNotFound        uint32 = 0x710
	CodeSymbolVersionInvalid  uint32 = 0x711
	CodeTimeout               uint32 = 0x745
)

var codeNames = map[uint32]string{
	CodeTargetPortNotFound:    "target port not found",
	CodeTargetMachineNotFound: "target machine not found",
	CodeServiceNotSupported:   "service not supported",
	CodeInvalidIndexGroup:     "invalid index group",
	CodeInvalidIndexOffset:    "invalid index offset",
	CodeInvalidSize:           "invalid size",
	CodeInvalidData:           "invalid data",
	CodeSymbolNotFound:        "symbol not found",
	CodeSymbolVersionInvalid:  "symbol version invalid",
	CodeTimeout:               "timeout",
}

func (e DeviceError) Error() string {
	if name, found := codeNames[e.Code]; found {
		return fmt.Sprintf("%s: 0x%x %s", ProtocolError, e.Code, name)
	}

	return fmt.Sprintf("%s: 0x%x", ProtocolError, e.Code)
}

func (e DeviceError) Unwrap() error {
	return ProtocolError
}
