package ads

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

type NetID [6]byte

func ParseNetID(s string) (NetID, error) {
	var id NetID

	parts := strings.Split(s, ".")
	if len(parts) != len(id) {
		return id, fmt.Errorf("%w: net id '%s' must have six parts", BadNetID, s)
	}

	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return id, fmt.Errorf("%w: net id '%s': %v", BadNetID, s, err)
		}

		id[i] = byte(v)
	}

	return id, nil
}

func (n NetID) String() string {
	parts := make([]string, len(n))
	for i, b := range n {
		parts[i] = strconv.Itoa(int(b))
	}

	return strings.Join(parts, ".")
}

type Address struct {
	NetID NetID
	Port  uint16
}

type CommandID uint16

const (
	CommandRead      CommandID = 2
	CommandWrite     CommandID = 3
	CommandReadState CommandID = 4
	CommandReadWrite CommandID = 9
)

const (
	stateFlagRequest  uint16 = 0x0004
	stateFlagResponse uint16 = 0x0001
)

const (
	IndexGroupSymbolHandleByName  uint32 = 0xf003
	IndexGroupSymbolValueByHandle uint32 = 0xf005
	IndexGroupSymbolReleaseHandle uint32 = 0xf006
	IndexGroupSymbolInfoByName    uint32 = 0xf009
)

const (
	amsTCPHeaderLength = 6
	amsHeaderLength    = 32

	// Replies larger than this are treated as a corrupt stream.
	maximumPacketLength = 1 << 20
)

type amsHeader struct {
	Target     Address
	Source     Address
	Command    CommandID
	StateFlags uint16
	DataLength uint32
	ErrorCode  uint32
	InvokeID   uint32
}

func (h amsHeader) marshal() []byte {
	out := make([]byte, amsTCPHeaderLength+amsHeaderLength)

	binary.LittleEndian.PutUint32(out[2:], uint32(amsHeaderLength)+h.DataLength)

	b := out[amsTCPHeaderLength:]
	copy(b[0:6], h.Target.NetID[:])
	binary.LittleEndian.PutUint16(b[6:], h.Target.Port)
	copy(b[8:14], h.Source.NetID[:])
	binary.LittleEndian.PutUint16(b[14:], h.Source.Port)
	binary.LittleEndian.PutUint16(b[16:], uint16(h.Command))
	binary.LittleEndian.PutUint16(b[18:], h.StateFlags)
	binary.LittleEndian.PutUint32(b[20:], h.DataLength)
	binary.LittleEndian.PutUint32(b[24:], h.ErrorCode)
	binary.LittleEndian.PutUint32(b[28:], h.InvokeID)

	return out
}

func unmarshalAMSHeader(b []byte) amsHeader {
	h := amsHeader{
		Command:    CommandID(binary.LittleEndian.Uint16(b[16:])),
		StateFlags: binary.LittleEndian.Uint16(b[18:]),
		DataLength: binary.LittleEndian.Uint32(b[20:]),
		ErrorCode:  binary.LittleEndian.Uint32(b[24:]),
		InvokeID:   binary.LittleEndian.Uint32(b[28:]),
	}

	copy(h.Target.NetID[:], b[0:6])
	h.Target.Port = binary.LittleEndian.Uint16(b[6:])
	copy(h.Source.NetID[:], b[8:14])
	h.Source.Port = binary.LittleEndian.Uint16(b[14:])

	return h
}

func readRequest(group uint32, offset uint32, length uint32) []byte {
	out := make([]byte, 12)
	binary.LittleEndian.PutUint32(out[0:], group)
	binary.LittleEndian.PutUint32(out[4:], offset)
	binary.LittleEndian.PutUint32(out[8:], length)
	return out
}

func writeRequest(group uint32, offset uint32, data []byte) []byte {
	return append(readRequest(group, offset, uint32(len(data))), data...)
}

func readWriteRequest(group uint32, offset uint32, readLength uint32, data []byte) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:], group)
	binary.LittleEndian.PutUint32(out[4:], offset)
	binary.LittleEndian.PutUint32(out[8:], readLength)
	binary.LittleEndian.PutUint32(out[12:], uint32(len(data)))
	return append(out, data...)
}

// SymbolEntry is the subset of a symbol information reply the gateway uses.
type SymbolEntry struct {
	IndexGroup  uint32
	IndexOffset uint32
	Size        uint32
	DataType    uint32
	Flags       uint32
	Name        string
	Type        string
	Comment     string
}

func decodeSymbolEntry(data []byte) (SymbolEntry, error) {
	const fixed = 30

	if len(data) < fixed {
		return SymbolEntry{}, fmt.Errorf("%w: symbol entry of %d bytes", ShortReply, len(data))
	}

	e := SymbolEntry{
		IndexGroup:  binary.LittleEndian.Uint32(data[4:]),
		IndexOffset: binary.LittleEndian.Uint32(data[8:]),
		Size:        binary.LittleEndian.Uint32(data[12:]),
		DataType:    binary.LittleEndian.Uint32(data[16:]),
		Flags:       binary.LittleEndian.Uint32(data[20:]),
	}

	nameLength := int(binary.LittleEndian.Uint16(data[24:]))
	typeLength := int(binary.LittleEndian.Uint16(data[26:]))
	commentLength := int(binary.LittleEndian.Uint16(data[28:]))

	// Each string is followed by a null terminator.
	if len(data) < fixed+nameLength+typeLength+commentLength+3 {
		return SymbolEntry{}, fmt.Errorf("%w: symbol entry strings truncated", ShortReply)
	}

	pos := fixed
	e.Name = string(data[pos : pos+nameLength])
	pos += nameLength + 1
	e.Type = string(data[pos : pos+typeLength])
	pos += typeLength + 1
	e.Comment = string(data[pos : pos+commentLength])

	return e, nil
}
