package ads

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

const DefaultAMSTCPPort = 48898
const DefaultTargetPort = 851
const DefaultSourcePort = 32905
const DefaultTimeout = 5 * time.Second

type State uint16

const (
	StateInvalid State = 0
	StateIdle    State = 1
	StateReset   State = 2
	StateInit    State = 3
	StateStart   State = 4
	StateRun     State = 5
	StateStop    State = 6
	StateConfig  State = 15
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReset:
		return "reset"
	case StateInit:
		return "init"
	case StateStart:
		return "start"
	case StateRun:
		return "run"
	case StateStop:
		return "stop"
	case StateConfig:
		return "config"
	default:
		return "state " + strconv.Itoa(int(s))
	}
}

type Dialer func(ctx context.Context, network string, address string) (net.Conn, error)

type Option func(*Client)

func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		c.timeout = t
	}
}

func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dial = d
	}
}

// WithTCPPort overrides the AMS/TCP port dialled on the remote host.
func WithTCPPort(p int) Option {
	return func(c *Client) {
		host, _, _ := net.SplitHostPort(c.address)
		c.address = net.JoinHostPort(host, strconv.Itoa(p))
	}
}

func WithTargetPort(p uint16) Option {
	return func(c *Client) {
		c.target.Port = p
	}
}

func WithSourcePort(p uint16) Option {
	return func(c *Client) {
		c.source.Port = p
	}
}

// Client talks ADS to a single PLC runtime over an AMS/TCP connection.
type Client struct {
	address string
	target  Address
	source  Address
	timeout time.Duration
	dial    Dialer

	lock     sync.Mutex
	conn     net.Conn
	invokeID uint32
}

func NewClient(host string, target NetID, source NetID, opts ...Option) *Client {
	c := &Client{
		address: net.JoinHostPort(host, strconv.Itoa(DefaultAMSTCPPort)),
		target:  Address{NetID: target, Port: DefaultTargetPort},
		source:  Address{NetID: source, Port: DefaultSourcePort},
		timeout: DefaultTimeout,
	}

	d := &net.Dialer{}
	c.dial = d.DialContext

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Connect(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, err := c.dial(ctx, "tcp", c.address)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to %s: %v", BadConnection, c.address, err)
	}

	c.conn = conn
	return nil
}

func (c *Client) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

// ReadState returns the ADS state of the target runtime.
func (c *Client) ReadState(ctx context.Context) (uint16, error) {
	data, err := c.request(ctx, CommandReadState, nil)
	if err != nil {
		return 0, err
	}

	if err := result(data, 8); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(data[4:]), nil
}

// Resolve acquires a handle for a named symbol, also returning its declared PLC type.
func (c *Client) Resolve(ctx context.Context, name string) (uint32, string, error) {
	entry, err := c.SymbolInfo(ctx, name)
	if err != nil {
		return 0, "", err
	}

	data, err := c.readWrite(ctx, IndexGroupSymbolHandleByName, 0, 4, []byte(name))
	if err != nil {
		return 0, "", err
	}

	if len(data) < 4 {
		return 0, "", fmt.Errorf("%w: handle of %d bytes", ShortReply, len(data))
	}

	return binary.LittleEndian.Uint32(data), entry.Type, nil
}

func (c *Client) SymbolInfo(ctx context.Context, name string) (SymbolEntry, error) {
	data, err := c.readWrite(ctx, IndexGroupSymbolInfoByName, 0, 0xffff, []byte(name))
	if err != nil {
		return SymbolEntry{}, err
	}

	return decodeSymbolEntry(data)
}

func (c *Client) Release(ctx context.Context, handle uint32) error {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, handle)

	return c.write(ctx, IndexGroupSymbolReleaseHandle, 0, data)
}

func (c *Client) Read(ctx context.Context, handle uint32, size int) ([]byte, error) {
	reply, err := c.request(ctx, CommandRead, readRequest(IndexGroupSymbolValueByHandle, handle, uint32(size)))
	if err != nil {
		return nil, err
	}

	data, err := lengthPrefixed(reply)
	if err != nil {
		return nil, err
	}

	if len(data) != size {
		return nil, fmt.Errorf("%w: read %d bytes, expected %d", UnexpectedResponse, len(data), size)
	}

	return data, nil
}

func (c *Client) Write(ctx context.Context, handle uint32, data []byte) error {
	return c.write(ctx, IndexGroupSymbolValueByHandle, handle, data)
}

func (c *Client) write(ctx context.Context, group uint32, offset uint32, data []byte) error {
	reply, err := c.request(ctx, CommandWrite, writeRequest(group, offset, data))
	if err != nil {
		return err
	}

	return result(reply, 4)
}

func (c *Client) readWrite(ctx context.Context, group uint32, offset uint32, readLength uint32, data []byte) ([]byte, error) {
	reply, err := c.request(ctx, CommandReadWrite, readWriteRequest(group, offset, readLength, data))
	if err != nil {
		return nil, err
	}

	return lengthPrefixed(reply)
}

// result checks the leading ADS result code of a reply of at least minimum bytes.
func result(data []byte, minimum int) error {
	if len(data) < minimum || len(data) < 4 {
		return fmt.Errorf("%w: reply of %d bytes", ShortReply, len(data))
	}

	if code := binary.LittleEndian.Uint32(data); code != 0 {
		return DeviceError{Code: code}
	}

	return nil
}

func lengthPrefixed(data []byte) ([]byte, error) {
	if err := result(data, 8); err != nil {
		return nil, err
	}

	length := binary.LittleEndian.Uint32(data[4:])
	if uint32(len(data)-8) < length {
		return nil, fmt.Errorf("%w: reply declares %d bytes, has %d", ShortReply, length, len(data)-8)
	}

	return data[8 : 8+length], nil
}

func (c *Client) request(ctx context.Context, command CommandID, payload []byte) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.conn == nil {
		return nil, NotConnected
	}

	c.invokeID++
	invokeID := c.invokeID

	h := amsHeader{
		Target:     c.target,
		Source:     c.source,
		Command:    command,
		StateFlags: stateFlagRequest,
		DataLength: uint32(len(payload)),
		InvokeID:   invokeID,
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, c.fail(err)
	}

	if _, err := c.conn.Write(append(h.marshal(), payload...)); err != nil {
		return nil, c.fail(err)
	}

	tcpHeader := make([]byte, amsTCPHeaderLength)
	if _, err := io.ReadFull(c.conn, tcpHeader); err != nil {
		return nil, c.fail(err)
	}

	length := binary.LittleEndian.Uint32(tcpHeader[2:])
	if length < amsHeaderLength || length > maximumPacketLength {
		return nil, c.fail(fmt.Errorf("%w: packet length %d", UnexpectedResponse, length))
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return nil, c.fail(err)
	}

	reply := unmarshalAMSHeader(body)
	data := body[amsHeaderLength:]

	if reply.InvokeID != invokeID || reply.Command != command || reply.StateFlags&stateFlagResponse == 0 {
		return nil, fmt.Errorf("%w: invoke id %d command %d, expected %d command %d", UnexpectedResponse, reply.InvokeID, reply.Command, invokeID, command)
	}

	if reply.ErrorCode != 0 {
		return nil, DeviceError{Code: reply.ErrorCode}
	}

	if uint32(len(data)) != reply.DataLength {
		return nil, fmt.Errorf("%w: data length %d, header declares %d", UnexpectedResponse, len(data), reply.DataLength)
	}

	return data, nil
}

// fail closes the socket after an I/O failure, must be called with the lock held.
func (c *Client) fail(err error) error {
	_ = c.conn.Close()
	c.conn = nil

	return fmt.Errorf("%w: %v", BadConnection, err)
}
