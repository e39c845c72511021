package modbus

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

const DefaultTimeout = 20 * time.Second
const DefaultSlaveID = 1

type Dialer func(ctx context.Context, network string, address string) (net.Conn, error)

type Option func(*Client)

// WithTimeout sets the socket deadline applied to requests whose context has no deadline.
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

// Client is a Modbus/TCP master for a single remote device. Only one request is ever in
// flight, callers sharing a client are serialised.
type Client struct {
	address string
	timeout time.Duration
	dial    Dialer

	lock          sync.Mutex
	conn          net.Conn
	slaveID       uint8
	transactionID uint16
}

func NewClient(host string, port int, opts ...Option) *Client {
	c := &Client{
		address:       net.JoinHostPort(host, strconv.Itoa(port)),
		timeout:       DefaultTimeout,
		slaveID:       DefaultSlaveID,
		transactionID: 1,
	}

	d := &net.Dialer{}
	c.dial = d.DialContext

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Address() string {
	return c.address
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

func (c *Client) Connected() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.conn != nil
}

func (c *Client) SetSlaveID(id uint8) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.slaveID = id
}

func (c *Client) ReadCoils(ctx context.Context, address uint16, count uint16) ([]bool, error) {
	return c.readBits(ctx, FuncReadCoils, address, count)
}

func (c *Client) ReadDiscreteInputs(ctx context.Context, address uint16, count uint16) ([]bool, error) {
	return c.readBits(ctx, FuncReadDiscreteInputs, address, count)
}

func (c *Client) ReadHoldingRegisters(ctx context.Context, address uint16, count uint16) ([]uint16, error) {
	return c.readRegisters(ctx, FuncReadHoldingRegisters, address, count)
}

func (c *Client) ReadInputRegisters(ctx context.Context, address uint16, count uint16) ([]uint16, error) {
	return c.readRegisters(ctx, FuncReadInputRegisters, address, count)
}

func (c *Client) WriteCoil(ctx context.Context, address uint16, value bool) error {
	var v uint16 = coilOff
	if value {
		v = coilOn
	}

	payload := addressAndCount(address, v)

	reply, err := c.transact(ctx, FuncWriteSingleCoil, payload)
	if err != nil {
		return err
	}

	return checkEcho(payload, reply)
}

func (c *Client) WriteRegister(ctx context.Context, address uint16, value uint16) error {
	payload := addressAndCount(address, value)

	reply, err := c.transact(ctx, FuncWriteSingleRegister, payload)
	if err != nil {
		return err
	}

	return checkEcho(payload, reply)
}

func (c *Client) WriteCoils(ctx context.Context, address uint16, values []bool) error {
	if len(values) == 0 || len(values) > MaximumWriteBits {
		return fmt.Errorf("%w: coil write count %d outside 1-%d", BadInput, len(values), MaximumWriteBits)
	}

	bits := packBits(values)
	payload := append(addressAndCount(address, uint16(len(values))), byte(len(bits)))
	payload = append(payload, bits...)

	reply, err := c.transact(ctx, FuncWriteMultipleCoils, payload)
	if err != nil {
		return err
	}

	return checkEcho(payload, reply)
}

func (c *Client) WriteRegisters(ctx context.Context, address uint16, values []uint16) error {
	if len(values) == 0 || len(values) > MaximumWriteRegisters {
		return fmt.Errorf("%w: register write count %d outside 1-%d", BadInput, len(values), MaximumWriteRegisters)
	}

	payload := append(addressAndCount(address, uint16(len(values))), byte(len(values)*2))
	for _, v := range values {
		payload = binary.BigEndian.AppendUint16(payload, v)
	}

	reply, err := c.transact(ctx, FuncWriteMultipleRegisters, payload)
	if err != nil {
		return err
	}

	return checkEcho(payload, reply)
}

func (c *Client) readBits(ctx context.Context, function FunctionCode, address uint16, count uint16) ([]bool, error) {
	if count == 0 || count > MaximumReadBits {
		return nil, fmt.Errorf("%w: bit read count %d outside 1-%d", BadInput, count, MaximumReadBits)
	}

	reply, err := c.transact(ctx, function, addressAndCount(address, count))
	if err != nil {
		return nil, err
	}

	return decodeBits(reply, count)
}

func (c *Client) readRegisters(ctx context.Context, function FunctionCode, address uint16, count uint16) ([]uint16, error) {
	if count == 0 || count > MaximumReadRegisters {
		return nil, fmt.Errorf("%w: register read count %d outside 1-%d", BadInput, count, MaximumReadRegisters)
	}

	reply, err := c.transact(ctx, function, addressAndCount(address, count))
	if err != nil {
		return nil, err
	}

	return decodeRegisters(reply, count)
}

// transact sends one request and waits for its reply, returning the payload after the function code.
func (c *Client) transact(ctx context.Context, function FunctionCode, payload []byte) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.conn == nil {
		return nil, NotConnected
	}

	transactionID := c.transactionID
	c.transactionID++

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, c.fail(err)
	}

	if _, err := c.conn.Write(encodeFrame(transactionID, c.slaveID, function, payload)); err != nil {
		return nil, c.fail(err)
	}

	headerBytes := make([]byte, mbapHeaderLength)
	if _, err := io.ReadFull(c.conn, headerBytes); err != nil {
		return nil, c.fail(err)
	}

	h := unmarshalHeader(headerBytes)
	if h.Length < 2 || h.Length > maximumPDULength+1 {
		// The stream can no longer be trusted to be aligned to a frame boundary.
		return nil, c.fail(fmt.Errorf("%w: invalid length %d", UnexpectedResponse, h.Length))
	}

	pdu := make([]byte, h.Length-1)
	if _, err := io.ReadFull(c.conn, pdu); err != nil {
		return nil, c.fail(err)
	}

	if h.TransactionID != transactionID {
		return nil, fmt.Errorf("%w: transaction id %d, expected %d", UnexpectedResponse, h.TransactionID, transactionID)
	}

	if h.ProtocolID != protocolID {
		return nil, fmt.Errorf("%w: protocol id %d", UnexpectedResponse, h.ProtocolID)
	}

	return decodePDU(function, pdu)
}

// fail closes the socket after an I/O failure, must be called with the lock held.
func (c *Client) fail(err error) error {
	_ = c.conn.Close()
	c.conn = nil

	return fmt.Errorf("%w: %v", BadConnection, err)
}
