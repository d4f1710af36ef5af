package route

import "time"

// NextHop is the upstream a sub-route forwards to: either a single fixed
// endpoint (Bilateral) or an endpoint templated from the destination
// address (Multilateral). Exactly one of the two is set.
type NextHop struct {
	Bilateral    *Bilateral
	Multilateral *Multilateral
}

// Bilateral is a fixed upstream endpoint.
type Bilateral struct {
	Endpoint  string
	AuthToken string
}

// Multilateral is an upstream endpoint templated from the destination
// address's first segment past the matched route prefix.
type Multilateral struct {
	EndpointPrefix string
	EndpointSuffix string
	AuthToken      string
}

// FailoverPolicy configures when a sub-route is suppressed after
// repeated failures (spec.md §4.4).
type FailoverPolicy struct {
	WindowSize   uint32
	FailRatio    float64
	FailDuration time.Duration
}

// SubRoute is one candidate forwarding target under a route entry's
// target prefix.
type SubRoute struct {
	// ID uniquely identifies this sub-route within the table; it indexes
	// the sub-route's failure-window slot (internal/failure).
	ID        int
	NextHop   NextHop
	Partition float64
	Failover  *FailoverPolicy
}
