package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/psmatrix/dispatch"
)

const contentType = "application/octet-stream"

// DefaultMaxReplyBytes bounds a reply body.
const DefaultMaxReplyBytes = 256 << 20

// HTTPOptions configures an HTTP transport.
type HTTPOptions struct {
	// Client is used for all requests. Defaults to a client with a 30s timeout;
	// the dispatch deadline normally fires first.
	Client *http.Client
	// Scheme is prepended to addresses without one. Defaults to "http".
	Scheme string
	// Path is appended to every address. Defaults to "/".
	Path string
	// MaxReplyBytes bounds a reply body. Zero means DefaultMaxReplyBytes.
	MaxReplyBytes int64
}

// HTTP posts frames to shard servers. It is safe for concurrent use.
type HTTP struct {
	opts HTTPOptions
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts HTTPOptions) *HTTP {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Scheme == "" {
		opts.Scheme = "http"
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.MaxReplyBytes <= 0 {
		opts.MaxReplyBytes = DefaultMaxReplyBytes
	}
	return &HTTP{opts: opts}
}

func (t *HTTP) url(addr string) string {
	if !strings.Contains(addr, "://") {
		addr = t.opts.Scheme + "://" + addr
	}
	return strings.TrimRight(addr, "/") + t.opts.Path
}

// Send implements dispatch.Transport.
func (t *HTTP) Send(ctx context.Context, addr string, frame []byte) ([]byte, error) {
	url := t.url(addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(frame))
	if err != nil {
		return nil, &dispatch.UnreachableError{Addr: addr, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.opts.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &dispatch.UnreachableError{Addr: addr, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &dispatch.UnreachableError{Addr: addr, Err: fmt.Errorf("http %s: %d", url, resp.StatusCode)}
	}

	reply, err := io.ReadAll(io.LimitReader(resp.Body, t.opts.MaxReplyBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &dispatch.UnreachableError{Addr: addr, Err: err}
	}
	if int64(len(reply)) > t.opts.MaxReplyBytes {
		return nil, &dispatch.UnreachableError{Addr: addr, Err: fmt.Errorf("reply exceeds %d bytes", t.opts.MaxReplyBytes)}
	}
	return reply, nil
}
