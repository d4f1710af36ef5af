// Package upstream implements the relay's next-hop client: it sends a
// selected Prepare to the chosen upstream endpoint, applies per-next-hop
// address rewriting, and reports the outcome to the failure window.
//
// The dispatch shape — resolve target, send, interpret the response,
// feed the result back into shared per-peer state — is grounded on the
// teacher's bgp/speaker.go listener loop (match an inbound connection to
// a peer, then drive its FSM from the outcome), translated here from a
// long-lived TCP/FSM session to a single HTTP round trip against a
// failure window.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/coilhq/interledger-relay/internal/failure"
	"github.com/coilhq/interledger-relay/internal/ilpaddr"
	"github.com/coilhq/interledger-relay/internal/packet"
	"github.com/coilhq/interledger-relay/internal/route"
	"github.com/sirupsen/logrus"
)

// errNoSegment is returned internally when a Multilateral next-hop has
// no destination segment to template into its endpoint.
var errNoSegment = errors.New("upstream: no multilateral segment")

// slack is added to a Prepare's remaining lifetime to derive the
// upstream request timeout (spec.md §4.6 step 4).
const slack = 1 * time.Second

// MediaType is the content type used for ILP packets over HTTP.
const MediaType = "application/octet-stream"

// Outcome is the result of Send, whether or not the round trip
// succeeded: exactly one of Fulfill or Reject is set.
type Outcome struct {
	Fulfill *packet.Fulfill
	Reject  *packet.Reject
}

// Client sends Prepare packets to upstream peers over HTTP.
type Client struct {
	HTTPClient *http.Client
	Failures   *failure.Registry
	Log        *logrus.Logger
}

// NewClient builds a Client with a default HTTP transport.
func NewClient(failures *failure.Registry, log *logrus.Logger) *Client {
	return &Client{
		HTTPClient: &http.Client{},
		Failures:   failures,
		Log:        log,
	}
}

// Send forwards prepare to sr's next hop, matched under matchedPrefix,
// and returns the resulting Fulfill or Reject. It never returns a
// transport error to the caller: every failure mode is translated into
// an ILP Reject, per spec.md §4.6 step 5, with the failure window
// updated accordingly.
func (c *Client) Send(ctx context.Context, sr route.SubRoute, matchedPrefix ilpaddr.Prefix, prepare *packet.Prepare, now time.Time) *Outcome {
	endpoint, authToken, err := resolveEndpoint(sr.NextHop, matchedPrefix, prepare.Destination)
	if err != nil {
		return rejectOutcome(packet.CodeUnreachable, "no multilateral segment in destination")
	}

	if !now.Before(prepare.Expiry) {
		return rejectOutcome(packet.CodeTransferTimedOut, "prepare already expired at send time")
	}
	timeout := prepare.Expiry.Sub(now) + slack

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(packet.EncodePrepare(prepare)))
	if err != nil {
		c.Failures.RecordFailure(sr.ID, now)
		return rejectOutcome(packet.CodePeerUnreachable, "could not build upstream request")
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Content-Type", MediaType)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Failures.RecordFailure(sr.ID, now)
		return rejectOutcome(packet.CodePeerUnreachable, "transport error")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.Failures.RecordFailure(sr.ID, now)
		return rejectOutcome(packet.CodePeerUnreachable, "could not read upstream response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return c.decodeSuccess(sr, body, now)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Any other 2xx has no defined ILP meaning; treat as malformed.
		c.logf(logrus.WarnLevel, "upstream returned unexpected 2xx status %d", resp.StatusCode)
		return rejectOutcome(packet.CodeInternalError, "malformed upstream response")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// A 4xx is local misconfiguration, not peer-health signal — not
		// counted as a failure (spec.md §4.4), but worth an operator log.
		c.logf(logrus.WarnLevel, "upstream rejected request with status %d", resp.StatusCode)
		return rejectOutcome(packet.CodeBadRequest, "upstream returned a client error")
	default:
		c.Failures.RecordFailure(sr.ID, now)
		return rejectOutcome(packet.CodePeerUnreachable, "upstream returned a server error")
	}
}

func (c *Client) decodeSuccess(sr route.SubRoute, body []byte, now time.Time) *Outcome {
	t, err := packet.PeekType(body)
	if err != nil {
		c.Failures.RecordFailure(sr.ID, now)
		return rejectOutcome(packet.CodeInternalError, "empty upstream response")
	}
	switch t {
	case packet.TypeFulfill:
		f, err := packet.DecodeFulfill(body)
		if err != nil {
			c.Failures.RecordFailure(sr.ID, now)
			return rejectOutcome(packet.CodeInternalError, "malformed upstream fulfill")
		}
		c.Failures.RecordSuccess(sr.ID, now)
		return &Outcome{Fulfill: f}
	case packet.TypeReject:
		j, err := packet.DecodeReject(body)
		if err != nil {
			c.Failures.RecordFailure(sr.ID, now)
			return rejectOutcome(packet.CodeInternalError, "malformed upstream reject")
		}
		c.Failures.RecordSuccess(sr.ID, now)
		return &Outcome{Reject: j}
	default:
		c.Failures.RecordFailure(sr.ID, now)
		return rejectOutcome(packet.CodeInternalError, "unexpected upstream packet type")
	}
}

func (c *Client) logf(level logrus.Level, format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Logf(level, format, args...)
	}
}

func resolveEndpoint(nh route.NextHop, matchedPrefix ilpaddr.Prefix, dest ilpaddr.Address) (endpoint, authToken string, err error) {
	if nh.Bilateral != nil {
		return nh.Bilateral.Endpoint, nh.Bilateral.AuthToken, nil
	}
	m := nh.Multilateral
	segment, ok := ilpaddr.SegmentAfter(matchedPrefix, dest)
	if !ok {
		return "", "", errNoSegment
	}
	return m.EndpointPrefix + segment + m.EndpointSuffix, m.AuthToken, nil
}

func rejectOutcome(code packet.RejectCode, message string) *Outcome {
	return &Outcome{Reject: &packet.Reject{Code: code, Message: message}}
}
