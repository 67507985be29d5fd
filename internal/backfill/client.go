package backfill

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/kraken"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/valyala/fasthttp"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	DefaultBaseURL = "https://api.kraken.com"
	DefaultTimeout = 10 * time.Second
)

// Client fetches historical candles from the public REST API.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if len(baseURL) == 0 {
		baseURL = DefaultBaseURL
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "marketfeed",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// OHLC returns the candles of symbol since the unix second since. Zero since
// lets the server pick its default window.
func (c *Client) OHLC(ctx context.Context, symbol string, interval model.Interval, since int64) ([]model.Candle, error) {
	if c == nil {
		return nil, exception.ErrNilInstance
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.uri(symbol, interval, since))
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, exception.Tag(exception.ErrBackfillResponse, errors.Wrapf(err, "get ohlc %s", symbol))
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, exception.Tag(exception.ErrBackfillResponse, errors.Errorf("get ohlc %s, status %d", symbol, code))
	}

	candles, _, err := kraken.ParseHistory(resp.Body(), interval)
	if err != nil {
		return nil, errors.Wrapf(err, "parse ohlc %s", symbol)
	}

	logs.Debugf("fetched %d candles of %s %s in %s", len(candles), symbol, interval.Label(), time.Since(start))

	return candles, nil
}

// uri builds the OHLC query. REST pair names carry no slash.
func (c *Client) uri(symbol string, interval model.Interval, since int64) string {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)

	args.Set("pair", strings.ReplaceAll(symbol, "/", ""))
	args.SetUint("interval", int(interval))
	if since > 0 {
		args.Set("since", strconv.FormatInt(since, 10))
	}
	return c.baseURL + "/0/public/OHLC?" + args.String()
}
