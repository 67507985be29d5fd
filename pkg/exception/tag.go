package exception

import "errors"

var (
	_ error = (*taggedError)(nil)
)

// Tag marks cause with kind so that errors.Is matches both of them.
func Tag(kind error, cause error) error {
	if cause == nil {
		return nil
	}

	if kind == nil {
		return cause
	}

	return &taggedError{
		kind:  kind,
		cause: cause,
	}
}

type taggedError struct {
	kind  error
	cause error
}

const sep = ", err: "

func (err *taggedError) Error() string {
	return err.kind.Error() + sep + err.cause.Error()
}

func (err *taggedError) Unwrap() []error {
	return []error{err.kind, err.cause}
}

// IsRateLimited reports whether err carries ErrRateLimited.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsConnection reports whether err is a transport level failure.
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrNotConnected)
}
