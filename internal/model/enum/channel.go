package enum

// Channel is a public feed channel.
type Channel uint8

const (
	_channel_beg Channel = iota
	ChannelTicker
	ChannelTrade
	ChannelOHLC
	_channel_end
)

func (c Channel) IsAvailable() bool {
	return c > _channel_beg && c < _channel_end
}

// Channels lists every available channel in burst order.
func Channels() []Channel {
	return []Channel{ChannelTicker, ChannelTrade, ChannelOHLC}
}

func (c Channel) String() string {
	switch c {
	case ChannelTicker:
		return "ticker"
	case ChannelTrade:
		return "trade"
	case ChannelOHLC:
		return "ohlc"
	default:
		return "unknown"
	}
}

// ParseChannel maps a wire channel name to a Channel. It returns false for unknown names.
func ParseChannel(name string) (Channel, bool) {
	switch name {
	case "ticker":
		return ChannelTicker, true
	case "trade":
		return ChannelTrade, true
	case "ohlc":
		return ChannelOHLC, true
	default:
		return _channel_beg, false
	}
}
