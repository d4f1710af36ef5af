package inbound

import (
	"context"
	"time"

	"github.com/coilhq/interledger-relay/internal/ilpaddr"
	"github.com/coilhq/interledger-relay/internal/packet"
	"github.com/coilhq/interledger-relay/internal/route"
	"github.com/coilhq/interledger-relay/internal/upstream"
)

// dispatch sends prepare to sr's next hop and returns its outcome. If
// ctx's deadline fires first, dispatch abandons the in-flight upstream
// call and answers with R00 itself — but still records a failure on
// sr, since an abandoned request is as much a signal of an unhealthy
// next hop as an explicit error response (spec.md §5).
func (s *Service) dispatch(ctx context.Context, sr route.SubRoute, matchedPrefix ilpaddr.Prefix, prepare *packet.Prepare, now time.Time) *upstream.Outcome {
	resultCh := make(chan *upstream.Outcome, 1)
	go func() {
		resultCh <- s.Upstream.Send(ctx, sr, matchedPrefix, prepare, now)
	}()

	select {
	case out := <-resultCh:
		return out
	case <-ctx.Done():
		s.Failures.RecordFailure(sr.ID, now)
		return &upstream.Outcome{
			Reject: &packet.Reject{Code: packet.CodeTransferTimedOut, Message: "handler deadline exceeded before upstream responded"},
		}
	}
}
