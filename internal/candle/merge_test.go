package candle

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hour = time.Hour

func hourMs(n int64) int64 {
	return n * hour.Milliseconds()
}

func bar(t int64, open, high, low, close, volume float64) model.Candle {
	return model.Candle{Time: t, Open: open, High: high, Low: low, Close: close, Volume: volume, Trades: 1, VWAP: close}
}

func TestMergeEmpty(t *testing.T) {
	c := bar(hourMs(3), 10, 12, 9, 11, 5)
	out := Merge(nil, c, hour, true)
	require.Len(t, out, 1)
	assert.Equal(t, c, out[0])
}

func TestMergeSameBucketRealtime(t *testing.T) {
	last := model.Candle{Time: hourMs(1), Open: 100, High: 105, Low: 95, Close: 100, Volume: 10, Trades: 3, VWAP: 100}
	incoming := model.Candle{Time: hourMs(1) + 1000, Open: 101, High: 112, Low: 99, Close: 110, Volume: 10, Trades: 2, VWAP: 110}
	series := model.CandleSeries{last}

	out := Merge(series, incoming, hour, true)

	require.Len(t, out, 1)
	got := out[0]
	assert.Equal(t, hourMs(1), got.Time)
	assert.Equal(t, 100.0, got.Open)
	assert.Equal(t, 112.0, got.High)
	assert.Equal(t, 95.0, got.Low)
	assert.Equal(t, 110.0, got.Close)
	assert.Equal(t, 20.0, got.Volume)
	assert.Equal(t, int64(5), got.Trades)
	assert.InDelta(t, 105.0, got.VWAP, 1e-9)

	assert.Equal(t, last, series[0], "input series must not change")
}

func TestMergeSameBucketZeroVolume(t *testing.T) {
	series := model.CandleSeries{{Time: 0, Open: 50, High: 50, Low: 50, Close: 50, VWAP: 50}}
	incoming := model.Candle{Time: 0, Open: 51, High: 52, Low: 49, Close: 51.5}

	out := Merge(series, incoming, hour, true)

	require.Len(t, out, 1)
	assert.Equal(t, 51.5, out[0].VWAP)
	assert.Zero(t, out[0].Volume)
}

func TestMergeGapFill(t *testing.T) {
	series := model.CandleSeries{
		bar(hourMs(0), 9, 10, 8, 9.5, 1),
		bar(hourMs(1), 9.5, 11, 9, 10, 2),
	}
	incoming := bar(hourMs(4), 12, 13, 11, 12.5, 4)

	out := Merge(series, incoming, hour, true)

	require.Len(t, out, 5)
	for i, tm := range []int64{hourMs(2), hourMs(3)} {
		filler := out[2+i]
		assert.Equal(t, tm, filler.Time)
		assert.Equal(t, 10.0, filler.Open)
		assert.Equal(t, 10.0, filler.High)
		assert.Equal(t, 10.0, filler.Low)
		assert.Equal(t, 10.0, filler.Close)
		assert.Equal(t, 10.0, filler.VWAP)
		assert.Zero(t, filler.Volume)
		assert.Zero(t, filler.Trades)
	}
	assert.Equal(t, incoming, out[4])
	assert.Len(t, series, 2)
}

func TestMergeNextBucketNoGap(t *testing.T) {
	series := model.CandleSeries{bar(hourMs(0), 9, 10, 8, 9.5, 1)}
	out := Merge(series, bar(hourMs(1), 9.5, 10, 9, 9.8, 1), hour, true)
	require.Len(t, out, 2)
	assert.Equal(t, hourMs(1), out[1].Time)
}

func TestMergeOutOfOrderInsert(t *testing.T) {
	width := time.Minute
	series := model.CandleSeries{
		bar(0, 1, 1, 1, 1, 1),
		bar(width.Milliseconds()*2, 2, 2, 2, 2, 1),
		bar(width.Milliseconds()*4, 3, 3, 3, 3, 1),
	}

	inserted := Merge(series, bar(width.Milliseconds()*3, 5, 5, 5, 5, 7), width, true)
	require.Len(t, inserted, 4)
	assert.True(t, inserted.IsOrdered())
	assert.Equal(t, 5.0, inserted[2].Close)

	replaced := Merge(series, bar(width.Milliseconds()*2, 6, 6, 6, 6, 9), width, true)
	require.Len(t, replaced, 3)
	assert.Equal(t, 6.0, replaced[1].Close)
	assert.Equal(t, 9.0, replaced[1].Volume, "corrections replace, they do not merge")
	assert.Equal(t, 2.0, series[1].Close)

	before := Merge(series, bar(-width.Milliseconds(), 4, 4, 4, 4, 1), width, true)
	require.Len(t, before, 4)
	assert.Equal(t, -width.Milliseconds(), before[0].Time)
}

func TestMergeOlderThanSeriesBridgesGap(t *testing.T) {
	series := model.CandleSeries{bar(hourMs(5), 1, 2, 1, 2, 1)}

	out := Merge(series, bar(hourMs(2), 3, 4, 3, 4, 1), hour, true)

	require.Len(t, out, 4)
	assert.Equal(t, 4.0, out[0].Close)
	assert.Equal(t, model.Flat(hourMs(3), 4), out[1])
	assert.Equal(t, model.Flat(hourMs(4), 4), out[2])
	assert.Equal(t, series[0], out[3])
}

func TestMergeFarFutureStaysWithinHorizon(t *testing.T) {
	series := model.CandleSeries{bar(hourMs(1), 1, 2, 1, 2, 1)}
	incoming := bar(9_000_000_000_000_000_000, 3, 4, 3, 4, 1)
	limit := CapacityFor(hour)

	out := Merge(series, incoming, hour, true)

	require.Len(t, out, limit)
	assert.True(t, out.IsOrdered())
	assert.Equal(t, Bucket(incoming.Time, hour), out[limit-1].Time)
	assert.Equal(t, 4.0, out[limit-1].Close)
	assert.Equal(t, model.Flat(out[limit-1].Time-hourMs(int64(limit-1)), 2), out[0])
	assert.Equal(t, model.Flat(out[limit-1].Time-hourMs(1), 2), out[limit-2])

	out = Merge(series, bar(math.MaxInt64, 3, 4, 3, 4, 1), hour, true)
	require.Len(t, out, limit)
	assert.True(t, out.IsOrdered())
}

func TestMergeFarPastStaysWithinHorizon(t *testing.T) {
	series := model.CandleSeries{bar(hourMs(10), 1, 2, 1, 2, 1)}
	limit := CapacityFor(hour)

	out := Merge(series, bar(-9_000_000_000_000_000_000, 3, 4, 3, 4, 1), hour, false)

	require.Len(t, out, limit)
	assert.True(t, out.IsOrdered())
	assert.Equal(t, series[0], out[limit-1])
	assert.Equal(t, model.Flat(hourMs(10-int64(limit-1)), 4), out[0])

	full := make(model.CandleSeries, limit)
	for i := range full {
		full[i] = bar(hourMs(int64(i)), 1, 2, 1, 2, 1)
	}
	out = Merge(full, bar(-hourMs(5), 3, 4, 3, 4, 1), hour, false)
	assert.Equal(t, full, out, "a full series has no room for older candles")
}

func TestMergeSameBucketHistoricalReplaces(t *testing.T) {
	series := model.CandleSeries{bar(hourMs(1), 1, 2, 1, 2, 3)}
	out := Merge(series, bar(hourMs(1), 4, 5, 4, 5, 6), hour, false)
	require.Len(t, out, 1)
	assert.Equal(t, 5.0, out[0].Close)
	assert.Equal(t, 6.0, out[0].Volume)
}

func TestMergeKeepsOrderingInvariant(t *testing.T) {
	width := 5 * time.Minute
	w := width.Milliseconds()
	rng := rand.New(rand.NewSource(42))

	var series model.CandleSeries
	for range 2000 {
		price := 100 + rng.Float64()*10
		c := bar(int64(rng.Intn(300))*w+int64(rng.Intn(int(w))), price, price+1, price-1, price, rng.Float64())
		series = Merge(series, c, width, rng.Intn(2) == 0)

		require.True(t, series.IsOrdered())
		for _, s := range series {
			require.Zero(t, s.Time%w, "times stay aligned to bucket starts")
		}
	}

	for i := 1; i < len(series); i++ {
		require.Equal(t, w, series[i].Time-series[i-1].Time, "series stays contiguous")
	}
}

func TestBucket(t *testing.T) {
	assert.Equal(t, int64(0), Bucket(59_999, time.Minute))
	assert.Equal(t, int64(60_000), Bucket(60_000, time.Minute))
	assert.Equal(t, int64(-60_000), Bucket(-1, time.Minute))
	assert.Equal(t, int64(123), Bucket(123, 0))
}
