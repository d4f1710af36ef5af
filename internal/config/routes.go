package config

import (
	"encoding/json"
	"time"

	"github.com/creasty/defaults"
	pkgerrors "github.com/pkg/errors"

	"github.com/coilhq/interledger-relay/internal/ilpaddr"
	"github.com/coilhq/interledger-relay/internal/route"
)

// parseRoutes accepts either documented form of the routes field
// (spec.md §6): a JSON object mapping target prefix to a sub-route
// list, or a JSON array of {target_prefix, sub_routes} entries.
func parseRoutes(raw json.RawMessage) ([]route.Entry, error) {
	trimmed := skipLeadingSpace(raw)
	if len(trimmed) == 0 {
		return nil, pkgerrors.New("routes field is empty")
	}
	ids := &idCounter{}
	switch trimmed[0] {
	case '{':
		var asMap map[string][]SubRouteSpec
		if err := json.Unmarshal(raw, &asMap); err != nil {
			return nil, err
		}
		entries := make([]route.Entry, 0, len(asMap))
		for prefix, subs := range asMap {
			e, err := toRouteEntry(ids, prefix, subs)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		return entries, nil
	case '[':
		var asArray []RouteEntrySpec
		if err := json.Unmarshal(raw, &asArray); err != nil {
			return nil, err
		}
		entries := make([]route.Entry, 0, len(asArray))
		for _, spec := range asArray {
			e, err := toRouteEntry(ids, spec.TargetPrefix, spec.SubRoutes)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		return entries, nil
	default:
		return nil, pkgerrors.New("routes field must be a JSON object or array")
	}
}

// idCounter assigns each sub-route a unique id within one Load call,
// used as its failure-window slot key (internal/failure).
type idCounter struct{ next int }

func (c *idCounter) take() int {
	id := c.next
	c.next++
	return id
}

func toRouteEntry(ids *idCounter, prefix string, specs []SubRouteSpec) (route.Entry, error) {
	p := ilpaddr.Prefix(prefix)
	if !p.Valid() {
		return route.Entry{}, pkgerrors.Errorf("invalid target prefix %q", prefix)
	}
	if len(specs) == 0 {
		return route.Entry{}, pkgerrors.Errorf("route %q has no sub-routes", prefix)
	}
	subRoutes := make([]route.SubRoute, 0, len(specs))
	for i, s := range specs {
		if err := defaults.Set(&s); err != nil {
			return route.Entry{}, pkgerrors.Wrapf(err, "route %q sub-route %d", prefix, i)
		}
		if err := validate.Struct(&s); err != nil {
			return route.Entry{}, pkgerrors.Wrapf(err, "route %q sub-route %d", prefix, i)
		}
		nh, err := toNextHop(s.NextHop)
		if err != nil {
			return route.Entry{}, pkgerrors.Wrapf(err, "route %q sub-route %d", prefix, i)
		}
		sr := route.SubRoute{
			ID:        ids.take(),
			NextHop:   nh,
			Partition: s.partition(),
		}
		if s.Failover != nil {
			sr.Failover = &route.FailoverPolicy{
				WindowSize:   s.Failover.WindowSize,
				FailRatio:    s.Failover.FailRatio,
				FailDuration: secondsToDuration(s.Failover.FailDurationSeconds),
			}
		}
		subRoutes = append(subRoutes, sr)
	}
	return route.Entry{TargetPrefix: p, SubRoutes: subRoutes}, nil
}

func toNextHop(spec NextHopSpec) (route.NextHop, error) {
	switch {
	case spec.Endpoint != "" && spec.EndpointPrefix == "":
		return route.NextHop{Bilateral: &route.Bilateral{Endpoint: spec.Endpoint, AuthToken: spec.AuthToken}}, nil
	case spec.EndpointPrefix != "" && spec.Endpoint == "":
		return route.NextHop{Multilateral: &route.Multilateral{
			EndpointPrefix: spec.EndpointPrefix,
			EndpointSuffix: spec.EndpointSuffix,
			AuthToken:      spec.AuthToken,
		}}, nil
	default:
		return route.NextHop{}, pkgerrors.New("next_hop must set exactly one of endpoint or endpoint_prefix")
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func skipLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return b[i:]
}
