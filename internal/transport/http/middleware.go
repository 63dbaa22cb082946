package http

import (
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
)

// loggingTransport logs every backend request at debug level.
type loggingTransport struct {
	next stdhttp.RoundTripper
	log  *zerolog.Logger
}

func (t *loggingTransport) RoundTrip(req *stdhttp.Request) (*stdhttp.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	// Log after request
	ev := t.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("http request failed")
		return nil, err
	}
	ev.Int("status", resp.StatusCode).Msg("http request")
	return resp, nil
}
