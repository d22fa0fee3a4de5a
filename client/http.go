// Package client talks to brokers, read-only managers and the primary manager over their
// HTTP JSON APIs.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/protocol"
	"go.uber.org/zap"
)

// Options configure every client in this package.
type Options struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 100 * time.Millisecond
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// StatusError is a failure response from a remote role.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// BaseURL turns a broker host or manager address into a base URL. Addresses without a
// scheme are served over plain http.
func BaseURL(addr string) string {
	addr = strings.TrimRight(addr, "/")
	if strings.Contains(addr, "://") {
		return addr
	}
	return "http://" + addr
}

type doer struct {
	opts  Options
	retry *retrier.Retrier
}

func newDoer(opts Options) *doer {
	opts = opts.withDefaults()
	d := &doer{opts: opts}
	if opts.Retries > 0 {
		d.retry = retrier.New(retrier.ExponentialBackoff(opts.Retries, opts.RetryBackoff), retryClassifier{})
	}
	return d
}

// retryClassifier retries transport failures and 5xx answers. Anything the remote side
// rejected on purpose is final.
type retryClassifier struct{}

func (retryClassifier) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code < http.StatusInternalServerError {
		return retrier.Fail
	}
	if errors.Is(err, errs.ErrNoData) || errors.Is(err, context.Canceled) {
		return retrier.Fail
	}
	return retrier.Retry
}

// do sends one JSON request and decodes the response into out. A nil body with GET sends
// query parameters instead.
func (d *doer) do(ctx context.Context, method, base, path string, query url.Values, body, out any) error {
	target := BaseURL(base) + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		b, err := protocol.MarshalJSON(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return errs.ErrUpstreamf(base, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.ErrUpstreamf(base, err)
	}

	var res protocol.Result
	if err := protocol.UnmarshalJSON(raw, &res); err != nil {
		return errs.ErrUpstreamf(base, &StatusError{Code: resp.StatusCode, Message: string(raw)})
	}
	if !res.OK() {
		if resp.StatusCode == http.StatusOK && res.Message == protocol.NoDataMessage {
			return errs.ErrNoData
		}
		return errs.ErrUpstreamf(base, &StatusError{Code: resp.StatusCode, Message: res.Message})
	}
	if out != nil {
		if err := protocol.UnmarshalJSON(raw, out); err != nil {
			return errs.ErrUpstreamf(base, err)
		}
	}
	return nil
}

// doIdempotent is do with retries, for calls that can safely be repeated.
func (d *doer) doIdempotent(ctx context.Context, method, base, path string, body, out any) error {
	if d.retry == nil {
		return d.do(ctx, method, base, path, nil, body, out)
	}
	attempt := 0
	return d.retry.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		err := d.do(ctx, method, base, path, nil, body, out)
		if err != nil {
			d.opts.Logger.Debug("request failed", zap.String("target", base), zap.String("path", path),
				zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
}
