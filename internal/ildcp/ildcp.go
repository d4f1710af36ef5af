// Package ildcp implements the relay's one-shot startup handshake with
// its parent: request the relay's own address and asset details before
// serving any inbound traffic.
//
// The single-request, fatal-on-failure shape is grounded on the
// teacher's speaker.go startup sequence (open the listening socket,
// then immediately dial configured peers before entering the serve
// loop) translated here from an indefinite BGP OPEN exchange to one
// bounded ILDCP request/response.
package ildcp

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/coilhq/interledger-relay/internal/ilpaddr"
	"github.com/coilhq/interledger-relay/internal/packet"
	"github.com/coilhq/interledger-relay/internal/route"
	"github.com/coilhq/interledger-relay/internal/upstream"
)

// requestTimeout bounds the ILDCP round trip. There is no retry: a
// relay that cannot learn its address from its parent has nothing
// useful to do, and exits (spec.md §6).
const requestTimeout = 30 * time.Second

// Resolve fetches this relay's address and asset details from its
// parent at endpoint, authenticating with authToken.
func Resolve(ctx context.Context, client *upstream.Client, endpoint, authToken string) (*packet.ILDCPResponse, error) {
	now := time.Now()
	prepare := &packet.Prepare{
		Amount:      0,
		Expiry:      now.Add(requestTimeout),
		Destination: packet.PeerConfigAddress,
	}

	sr := route.SubRoute{
		ID:      -1,
		NextHop: route.NextHop{Bilateral: &route.Bilateral{Endpoint: endpoint, AuthToken: authToken}},
	}

	out := client.Send(ctx, sr, ilpaddr.Prefix(""), prepare, now)
	if out.Reject != nil {
		return nil, pkgerrors.Errorf("ildcp: parent rejected request: %s %s", out.Reject.Code, out.Reject.Message)
	}
	resp, err := packet.DecodeILDCPResponse(out.Fulfill.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "ildcp: malformed response")
	}
	return resp, nil
}
