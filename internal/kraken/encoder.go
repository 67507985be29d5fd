package kraken

import (
	"slices"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model/enum"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/yanun0323/errors"
)

type command struct {
	Event        string        `json:"event"`
	ReqID        uint64        `json:"reqid"`
	Pair         []string      `json:"pair,omitempty"`
	Subscription *subscription `json:"subscription,omitempty"`
}

type subscription struct {
	Name     string `json:"name"`
	Interval int    `json:"interval,omitempty"`
}

// Encoder builds outbound commands. Each command gets a fresh reqid.
type Encoder struct {
	reqID atomic.Uint64
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) EncodeSubscribe(channel enum.Channel, interval model.Interval, symbols []string) ([]byte, error) {
	return e.encodeSubscription("subscribe", channel, interval, symbols)
}

func (e *Encoder) EncodeUnsubscribe(channel enum.Channel, interval model.Interval, symbols []string) ([]byte, error) {
	return e.encodeSubscription("unsubscribe", channel, interval, symbols)
}

func (e *Encoder) EncodePing() ([]byte, error) {
	return e.marshal(command{Event: "ping"})
}

func (e *Encoder) encodeSubscription(event string, channel enum.Channel, interval model.Interval, symbols []string) ([]byte, error) {
	if !channel.IsAvailable() {
		return nil, exception.Tag(exception.ErrUnsupportedChannel, errors.Errorf("channel %d", channel))
	}

	if len(symbols) == 0 {
		return nil, exception.Tag(exception.ErrInvalidArgument, errors.New("no symbols"))
	}

	sub := &subscription{Name: channel.String()}
	if channel == enum.ChannelOHLC {
		if !interval.IsAvailable() {
			return nil, exception.Tag(exception.ErrUnsupportedInterval, errors.Errorf("interval %d", interval))
		}
		sub.Interval = int(interval)
	}

	pairs := slices.Clone(symbols)
	slices.Sort(pairs)

	return e.marshal(command{
		Event:        event,
		Pair:         pairs,
		Subscription: sub,
	})
}

func (e *Encoder) marshal(cmd command) ([]byte, error) {
	cmd.ReqID = e.reqID.Add(1)
	payload, err := sonic.ConfigStd.Marshal(cmd)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s", cmd.Event)
	}
	return payload, nil
}
