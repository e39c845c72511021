package device

// Category is the kind of field device a session talks to.
type Category uint8

const (
	Door Category = iota
	Lift
)

func (c Category) String() string {
	switch c {
	case Door:
		return "door"
	case Lift:
		return "lift"
	default:
		return "unknown"
	}
}

type ConnectionState uint8

const (
	Disconnected ConnectionState = iota
	Connected
	Degraded
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of a write followed by a verification read.
type Outcome uint8

const (
	// Rejected means nothing was applied to the device.
	Rejected Outcome = iota
	// Unverified means writes were at least partially applied, but the read back did not confirm them.
	Unverified
	Verified
)

func (o Outcome) Succeeded() bool {
	return o == Verified
}

func (o Outcome) String() string {
	switch o {
	case Verified:
		return "verified"
	case Unverified:
		return "unverified"
	default:
		return "rejected"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Identity names a device, names are unique within a category.
type Identity struct {
	Name     string
	Category Category
}

// Telemetry is a single outbound status message for one device.
type Telemetry struct {
	Identity Identity
	Payload  any
}
