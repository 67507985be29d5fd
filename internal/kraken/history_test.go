package kraken

import (
	"testing"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHistory(t *testing.T) {
	body := `{"error":[],"result":{"XXBTZUSD":[[1688671200,"30306.1","30306.2","30305.7","30305.7","30306.1","3.39243896",23],[1688671260,"30305.7","30310.0","30305.7","30309.9","30308.0","1.5",4]],"last":1688671260}}`

	candles, last, err := ParseHistory([]byte(body), model.Interval1m)
	require.NoError(t, err)
	assert.Equal(t, int64(1688671260), last)
	require.Len(t, candles, 2)

	assert.Equal(t, model.Candle{
		Time:   1688671200000,
		Open:   30306.1,
		High:   30306.2,
		Low:    30305.7,
		Close:  30305.7,
		VWAP:   30306.1,
		Volume: 3.39243896,
		Trades: 23,
	}, candles[0])
	assert.Equal(t, int64(1688671260000), candles[1].Time)
}

func TestParseHistoryErrors(t *testing.T) {
	_, _, err := ParseHistory([]byte(`{"error":["EQuery:Unknown asset pair"]}`), model.Interval1m)
	assert.ErrorIs(t, err, exception.ErrBackfillResponse)
	assert.Contains(t, err.Error(), "Unknown asset pair")

	_, _, err = ParseHistory([]byte(`{"error":[],"result":{"X":[[1,"a","1","1","1","1","1",1]],"last":1}}`), model.Interval1m)
	assert.ErrorIs(t, err, exception.ErrParse)

	_, _, err = ParseHistory([]byte(`{"error":[],"result":{"X":[[99999999999999999999,"1","1","1","1","1","1",1]],"last":1}}`), model.Interval1m)
	assert.ErrorIs(t, err, exception.ErrParse)

	_, _, err = ParseHistory([]byte(`<html>`), model.Interval1m)
	assert.ErrorIs(t, err, exception.ErrParse)

	_, _, err = ParseHistory([]byte(`{"error":[],"result":{"last":1}}`), model.Interval1m)
	assert.ErrorIs(t, err, exception.ErrParse)

	_, _, err = ParseHistory([]byte(`{}`), model.Interval(2))
	assert.ErrorIs(t, err, exception.ErrUnsupportedInterval)
}
