// Package router implements the optional request-routing partner
// (§4.4): a lock-free-read, atomic-publish route table matching
// (host, path) to a backend pool by specificity order.
package router

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Table is a lock-free-read route table. Readers Load the current
// slice and range over it without ever taking a lock, per §5 "the
// Router is fully lock-free on reads and uses atomic publish on
// writes" — the core-language counterpart to the matching engine's
// mutex-guarded Book and the compliance engine's mutex-guarded Window.
// Writers serialize through mu and publish a freshly sorted slice.
type Table struct {
	mu     sync.Mutex // serializes writers; readers never take it
	routes atomic.Pointer[[]Route]
}

func NewTable() *Table {
	t := &Table{}
	empty := []Route{}
	t.routes.Store(&empty)
	return t
}

// sortedCopy returns a new slice containing cur plus extra (if non-nil),
// sorted by specificity (§4.4.2).
func sortedCopy(cur []Route, extra *Route) []Route {
	n := len(cur)
	if extra != nil {
		n++
	}
	out := make([]Route, 0, n)
	out = append(out, cur...)
	if extra != nil {
		out = append(out, *extra)
	}
	sort.SliceStable(out, func(i, j int) bool {
		hi, pi := out[i].specificity()
		hj, pj := out[j].specificity()
		if hi != hj {
			return hi < hj
		}
		return pi < pj
	})
	return out
}

// AddRoute inserts a route and atomically republishes the whole table,
// sorted by specificity. Never a partial update (§4.4.4: "hot-reload
// replaces the table wholesale, never partially").
func (t *Table) AddRoute(r Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := *t.routes.Load()
	next := sortedCopy(cur, &r)
	t.routes.Store(&next)
}

// Replace swaps in an entirely new, pre-sorted route set — the
// hot-reload path (§4.4.4).
func (t *Table) Replace(routes []Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := sortedCopy(routes, nil)
	t.routes.Store(&next)
}

// Clear empties the table.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	empty := []Route{}
	t.routes.Store(&empty)
}

// RouteCount returns the number of routes currently published.
func (t *Table) RouteCount() int {
	return len(*t.routes.Load())
}

// Find performs the §4.4.3 linear scan of the specificity-sorted
// table: the first route matching both host and path wins. No lock is
// taken; Load gives a consistent snapshot even if a writer publishes
// concurrently.
func (t *Table) Find(host, path string) (RouteMatch, error) {
	routes := *t.routes.Load()
	for _, r := range routes {
		if r.matchesHost(host) && r.matchesPath(path) {
			return RouteMatch{
				Backends:    append([]string(nil), r.Backends...),
				StripPrefix: r.StripPrefix,
				Prefix:      r.PathPrefix,
			}, nil
		}
	}
	return RouteMatch{}, &RouteNotFoundError{Host: host, Path: path}
}
