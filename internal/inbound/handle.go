package inbound

import (
	"context"
	"time"

	"github.com/coilhq/interledger-relay/internal/ilpaddr"
	"github.com/coilhq/interledger-relay/internal/packet"
	"github.com/coilhq/interledger-relay/internal/peer"
	"github.com/coilhq/interledger-relay/internal/selector"
)

// handle runs one decoded Prepare through peer invariant enforcement,
// the ILDCP local-termination shortcut, route selection, and upstream
// dispatch. Exactly one of the two return values is non-nil.
func (s *Service) handle(ctx context.Context, ref peer.Ref, prepare *packet.Prepare, now time.Time) (*packet.Fulfill, *packet.Reject) {
	if prepare.Destination == packet.PeerConfigAddress {
		resp := &packet.ILDCPResponse{
			Address:    s.addressFor(ref),
			AssetScale: s.RootAssetScale,
			AssetCode:  s.RootAssetCode,
		}
		return &packet.Fulfill{Data: packet.EncodeILDCPResponse(resp)}, nil
	}

	// A Child peer may not address the relay's own terminal node; doing
	// so has no forwarding meaning (spec.md §4.7 step 3).
	if ref.Kind == peer.Child && prepare.Destination == s.RootAddress {
		return nil, &packet.Reject{Code: packet.CodeUnreachable, Message: "destination is the relay's own address"}
	}

	if !now.Before(prepare.Expiry) {
		return nil, &packet.Reject{Code: packet.CodeInsufficientTimeout, Message: "prepare expiry already in the past"}
	}

	entry, ok := s.Routes.Match(prepare.Destination)
	if !ok {
		return nil, &packet.Reject{Code: packet.CodeUnreachable, Message: "no route to destination"}
	}

	partitionKey := partitionKeyFor(s.PartitionKind, prepare)
	sr, err := selector.Select(entry, s.Failures, partitionKey, now)
	if err != nil {
		return nil, &packet.Reject{Code: packet.CodePeerUnreachable, Message: "no available sub-route"}
	}

	deadline := prepare.Expiry
	if s.ServerMaxDuration > 0 {
		if serverDeadline := now.Add(s.ServerMaxDuration); serverDeadline.Before(deadline) {
			deadline = serverDeadline
		}
	}
	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	out := s.dispatch(dctx, sr, entry.TargetPrefix, prepare, now)
	return out.Fulfill, out.Reject
}

// addressFor derives the address an ILDCP response grants a peer: the
// relay's own address with the peer's configured suffix appended.
func (s *Service) addressFor(ref peer.Ref) ilpaddr.Address {
	if ref.AddressSuffix == "" {
		return s.RootAddress
	}
	return ilpaddr.Address(string(s.RootAddress) + "." + ref.AddressSuffix)
}

func partitionKeyFor(kind selector.PartitionKeyKind, prepare *packet.Prepare) []byte {
	if kind == selector.PartitionByExecutionCondition {
		return prepare.Condition[:]
	}
	return []byte(prepare.Destination)
}
