package failure

import (
	"time"

	"github.com/coilhq/interledger-relay/internal/route"
)

// Registry owns one Window per sub-route that carries a FailoverPolicy.
// Sub-routes without a policy have no window and are always available.
// Built once at startup alongside the route table (spec.md §3: "created
// at configuration load, lives for process lifetime, no destruction");
// read concurrently by every request without any lock beyond each
// Window's own.
type Registry struct {
	windows map[int]*Window
}

// NewRegistry builds failure windows for every sub-route with a
// FailoverPolicy across all route entries.
func NewRegistry(entries []route.Entry) *Registry {
	windows := make(map[int]*Window)
	for _, e := range entries {
		for _, sr := range e.SubRoutes {
			if sr.Failover != nil {
				windows[sr.ID] = NewWindow(sr.Failover.WindowSize, sr.Failover.FailRatio, sr.Failover.FailDuration)
			}
		}
	}
	return &Registry{windows: windows}
}

// IsAvailable reports whether the given sub-route may be selected right
// now. Sub-routes with no failover policy are always available.
func (r *Registry) IsAvailable(subRouteID int, now time.Time) bool {
	w, ok := r.windows[subRouteID]
	if !ok {
		return true
	}
	return w.IsAvailable(now)
}

// RecordSuccess reports a successful forward on the given sub-route.
// A no-op if the sub-route has no failover policy.
func (r *Registry) RecordSuccess(subRouteID int, now time.Time) {
	if w, ok := r.windows[subRouteID]; ok {
		w.RecordSuccess(now)
	}
}

// RecordFailure reports a failed forward on the given sub-route.
// A no-op if the sub-route has no failover policy.
func (r *Registry) RecordFailure(subRouteID int, now time.Time) {
	if w, ok := r.windows[subRouteID]; ok {
		w.RecordFailure(now)
	}
}
