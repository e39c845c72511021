package lift

import "context"

// RunStateRun is the runtime state of a PLC executing its program.
const RunStateRun uint16 = 5

// Remote is a connection to a PLC runtime exposing named variables.
type Remote interface {
	Connect(ctx context.Context) error
	Close() error
	ReadState(ctx context.Context) (uint16, error)
	// Resolve returns a handle to the named variable and its declared PLC type.
	Resolve(ctx context.Context, name string) (uint32, string, error)
	Release(ctx context.Context, handle uint32) error
	Read(ctx context.Context, handle uint32, size int) ([]byte, error)
	Write(ctx context.Context, handle uint32, data []byte) error
}

type liftError string

func (e liftError) Error() string {
	return string(e)
}

const ConnectionError = liftError("lift not connected")
const TypeMismatch = liftError("type mismatch")
const UnknownAlias = liftError("unknown variable alias")
const BindFailure = liftError("failed to bind variable")
const IOFailure = liftError("variable io failed")
