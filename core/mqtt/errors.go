package mqtt

import "errors"

var (
	// ErrNotConnected is returned when publishing outside the connected state.
	ErrNotConnected = errors.New("not connected")
	// ErrConnectTimeout is returned when the broker does not accept the
	// connection before the connect timeout.
	ErrConnectTimeout = errors.New("connect timeout")
	// ErrConnectionLost wraps the transport error of an unexpected drop.
	ErrConnectionLost = errors.New("connection lost")
	// ErrConnectAborted is returned by Connect when Disconnect was called
	// before the connection completed.
	ErrConnectAborted = errors.New("connect aborted")
)
