package exception

import "github.com/yanun0323/errors"

var (
	ErrParse               = errors.New("market data: malformed frame")
	ErrValidation          = errors.New("market data: invalid candle")
	ErrSubscription        = errors.New("market data: subscription rejected")
	ErrReconcileTimeout    = errors.New("market data: connection not ready for reconcile")
	ErrInvalidSubscription = errors.New("market data: invalid subscription")
	ErrUnsupportedInterval = errors.New("market data: unsupported interval")
	ErrUnsupportedChannel  = errors.New("market data: unsupported channel")
	ErrBackfillResponse    = errors.New("market data: backfill response error")
)
