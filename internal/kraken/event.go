package kraken

import (
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
)

// EventKind tags the variant held by an Event.
type EventKind uint8

const (
	_event_beg EventKind = iota
	EventTicker
	EventTrade
	EventOHLC
	EventSubscriptionAck
	EventSubscriptionError
	EventHeartbeat
	EventPong
	EventSystemStatus
	_event_end
)

func (k EventKind) IsAvailable() bool {
	return k > _event_beg && k < _event_end
}

func (k EventKind) String() string {
	switch k {
	case EventTicker:
		return "ticker"
	case EventTrade:
		return "trade"
	case EventOHLC:
		return "ohlc"
	case EventSubscriptionAck:
		return "subscription_ack"
	case EventSubscriptionError:
		return "subscription_error"
	case EventHeartbeat:
		return "heartbeat"
	case EventPong:
		return "pong"
	case EventSystemStatus:
		return "system_status"
	default:
		return "unknown"
	}
}

// Event is one parsed frame. Only the fields of its Kind are set.
type Event struct {
	Kind     EventKind
	Symbol   string
	Interval model.Interval

	Ticker model.Ticker
	Trades []model.Trade
	Candle model.Candle

	// Subscription is set for acks and subscription errors.
	Subscription model.Subscription
	// Status is the subscription or system status word.
	Status string
	// Message is the server error message.
	Message string
}
