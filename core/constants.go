package core

import (
	"errors"
	"time"
)

// Engine defaults
const (
	DefaultReadTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultMaxConnections = 1024

	// Accept backoff bounds for temporary accept errors
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second

	readBufferSize = 4096
)

// ErrServerClosed is returned by Serve after Shutdown has been called
var ErrServerClosed = errors.New("server closed")
