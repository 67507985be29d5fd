package exception

import "github.com/yanun0323/errors"

// Connection errors
var (
	ErrConnection   = errors.New("connection: transport failure")
	ErrNotConnected = errors.New("connection: not connected")
	ErrClosed       = errors.New("connection: closed")
	ErrIdleTimeout  = errors.New("connection: no frame within idle timeout")
	ErrRateLimited  = errors.New("connection: rate limited")
	ErrNilDialer    = errors.New("connection: nil dialer")
)
