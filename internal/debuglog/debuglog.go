// Package debuglog wraps the relay's inbound handler with optional,
// per-field request/response logging. Logging is entirely opt-in and
// costs nothing when disabled: Wrap returns next unchanged unless at
// least one of Options' fields is set.
//
// Grounded on the teacher's counter/counter.go (a cheap, always-on
// instrument the speaker updates on every message) generalized from an
// unconditional counter to a conditionally-enabled structured logger,
// since an always-on per-request log line is not acceptable on a relay
// handling payment traffic.
package debuglog

import (
	"bytes"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/coilhq/interledger-relay/internal/packet"
)

// Options controls which outcomes are logged. Each is independent.
type Options struct {
	LogPrepare bool
	LogFulfill bool
	LogReject  bool
}

func (o Options) any() bool {
	return o.LogPrepare || o.LogFulfill || o.LogReject
}

// Wrap returns an http.Handler that logs according to opts around
// next. If no option is enabled, next is returned unwrapped.
func Wrap(next http.Handler, opts Options, log *logrus.Logger) http.Handler {
	if !opts.any() || log == nil {
		return next
	}
	return &handler{next: next, opts: opts, log: log}
}

type handler struct {
	next http.Handler
	opts Options
	log  *logrus.Logger
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var prepareBody []byte
	if h.opts.LogPrepare && r.Body != nil {
		prepareBody, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(prepareBody))
	}
	if p, err := packet.DecodePrepare(prepareBody); err == nil && h.opts.LogPrepare {
		h.log.WithFields(logrus.Fields{
			"destination": p.Destination,
			"amount":      p.Amount,
		}).Info("prepare received")
	}

	rec := &responseRecorder{ResponseWriter: w}
	h.next.ServeHTTP(rec, r)

	if len(rec.body) == 0 {
		return
	}
	t, err := packet.PeekType(rec.body)
	if err != nil {
		return
	}
	switch t {
	case packet.TypeFulfill:
		if h.opts.LogFulfill {
			h.log.Info("fulfill forwarded")
		}
	case packet.TypeReject:
		if h.opts.LogReject {
			if j, err := packet.DecodeReject(rec.body); err == nil {
				h.log.WithFields(logrus.Fields{
					"code":         j.Code,
					"triggered_by": j.TriggeredBy,
				}).Info("reject returned")
			}
		}
	}
}

// responseRecorder captures the response body for post-hoc logging
// without buffering headers or altering the status code sent upstream.
type responseRecorder struct {
	http.ResponseWriter
	body []byte
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body = append(r.body, b...)
	return r.ResponseWriter.Write(b)
}
