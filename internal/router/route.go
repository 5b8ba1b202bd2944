package router

import "strings"

// Wildcard matches any host (§4.4.1).
const Wildcard = "*"

// Route is one entry in the table: a host/path-prefix pattern and the
// backend pool it resolves to.
type Route struct {
	Host        string
	PathPrefix  string
	Backends    []string
	StripPrefix bool
}

// RouteMatch is the immutable result handed back to callers — a copy
// of the backend list and the prefix-stripping instruction, never a
// pointer into the live table (§4.4: "return an immutable RouteMatch").
type RouteMatch struct {
	Backends    []string
	StripPrefix bool
	Prefix      string
}

// matchesHost implements §4.4.3: "route.host in {'*', '', request.host}".
func (r Route) matchesHost(host string) bool {
	return r.Host == Wildcard || r.Host == "" || r.Host == host
}

// matchesPath implements §4.4.3: "route.path_prefix == '/' or path starts with it".
func (r Route) matchesPath(path string) bool {
	return r.PathPrefix == "/" || strings.HasPrefix(path, r.PathPrefix)
}

// specificity gives the ordering key from §4.4.2: non-wildcard hosts
// before "*", and within equal host specificity, longer path prefixes
// first. Returned as (hostRank, -len(PathPrefix)) so a plain slice
// sort.Slice comparator can use simple less-than on both fields.
func (r Route) specificity() (hostRank int, negPathLen int) {
	if r.Host == Wildcard || r.Host == "" {
		hostRank = 1
	}
	return hostRank, -len(r.PathPrefix)
}
