// Package inbound implements the relay's top-level HTTP contract:
// authenticate the request, decode the Prepare, enforce per-peer
// invariants, select and dispatch to a next hop, and map every outcome
// back to an outbound ILP Fulfill or Reject.
//
// The overall shape — validate the inbound request against peer state,
// then drive the pipeline to a single response — is grounded on the
// teacher's peer.go handleConnection/validateOpen sequence (validate,
// then either notify-and-close or advance the session), translated here
// from a long-lived BGP session handshake to one ILP request/response.
package inbound

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coilhq/interledger-relay/internal/failure"
	"github.com/coilhq/interledger-relay/internal/ilpaddr"
	"github.com/coilhq/interledger-relay/internal/packet"
	"github.com/coilhq/interledger-relay/internal/peer"
	"github.com/coilhq/interledger-relay/internal/route"
	"github.com/coilhq/interledger-relay/internal/selector"
	"github.com/coilhq/interledger-relay/internal/upstream"
	"github.com/sirupsen/logrus"
)

// MaxBodyBytes bounds the size of an inbound request body.
const MaxBodyBytes = 64 * 1024

// Service is the relay's inbound HTTP handler.
type Service struct {
	Peers    *peer.Registry
	Routes   *route.Table
	Failures *failure.Registry
	Upstream *upstream.Client

	RootAddress    ilpaddr.Address
	RootAssetScale uint8
	RootAssetCode  string

	PartitionKind selector.PartitionKeyKind

	// ServerMaxDuration bounds how long a request is allowed to take,
	// independent of the Prepare's own expiry (spec.md §5: "effective
	// deadline min(server_max, prepare.expiry)").
	ServerMaxDuration time.Duration

	// Now returns the current time; overridable in tests.
	Now func() time.Time

	Log *logrus.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ServeHTTP implements http.Handler. A handler panic is converted to an
// HTTP 500 rather than crashing the process (spec.md §7).
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			if s.Log != nil {
				s.Log.WithField("panic", rec).Error("inbound handler panicked")
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	token, ok := bearerToken(r)
	if !ok {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	ref, ok := s.Peers.Identify(token)
	if !ok {
		http.Error(w, "unknown bearer token", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}
	if len(body) > MaxBodyBytes {
		http.Error(w, "request body too large", http.StatusBadRequest)
		return
	}

	prepare, err := packet.DecodePrepare(body)
	if err != nil {
		http.Error(w, "malformed prepare packet", http.StatusBadRequest)
		return
	}

	now := s.now()
	fulfill, reject := s.handle(r.Context(), ref, prepare, now)

	w.Header().Set("Content-Type", upstream.MediaType)
	w.WriteHeader(http.StatusOK)
	switch {
	case fulfill != nil:
		w.Write(packet.EncodeFulfill(fulfill))
	case reject != nil:
		if reject.TriggeredBy == "" {
			reject.TriggeredBy = s.RootAddress
		}
		w.Write(packet.EncodeReject(reject))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimPrefix(h, prefix)
	if token == "" {
		return "", false
	}
	return token, true
}
