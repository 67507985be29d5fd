package subscription

import (
	"cmp"
	"slices"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
)

// Set is an unordered collection of subscriptions.
type Set map[model.Subscription]struct{}

func NewSet(subs ...model.Subscription) Set {
	s := make(Set, len(subs))
	for _, sub := range subs {
		s[sub] = struct{}{}
	}
	return s
}

func (s Set) Has(sub model.Subscription) bool {
	_, ok := s[sub]
	return ok
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for sub := range s {
		out[sub] = struct{}{}
	}
	return out
}

// Minus returns the members of s that are not in other.
func (s Set) Minus(other Set) Set {
	out := Set{}
	for sub := range s {
		if !other.Has(sub) {
			out[sub] = struct{}{}
		}
	}
	return out
}

func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for sub := range s {
		if !other.Has(sub) {
			return false
		}
	}
	return true
}

// Sorted returns the members ordered by channel, interval and symbol.
func (s Set) Sorted() []model.Subscription {
	out := make([]model.Subscription, 0, len(s))
	for sub := range s {
		out = append(out, sub)
	}
	slices.SortFunc(out, compare)
	return out
}

func compare(a, b model.Subscription) int {
	return cmp.Or(
		cmp.Compare(a.Channel, b.Channel),
		cmp.Compare(a.Interval, b.Interval),
		cmp.Compare(a.Symbol, b.Symbol),
	)
}

// group is one wire command worth of subscriptions.
type group struct {
	key     model.Subscription
	symbols []string
}

// groups batches s into one entry per channel and interval.
func (s Set) groups() []group {
	var out []group
	for _, sub := range s.Sorted() {
		key := model.Subscription{Channel: sub.Channel, Interval: sub.Interval}
		if n := len(out); n > 0 && out[n-1].key == key {
			out[n-1].symbols = append(out[n-1].symbols, sub.Symbol)
			continue
		}
		out = append(out, group{key: key, symbols: []string{sub.Symbol}})
	}
	return out
}
