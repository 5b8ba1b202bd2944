package router

import "fmt"

// RouteNotFoundError carries the (host, path) pair that matched no
// route, per §4.4.4.
type RouteNotFoundError struct {
	Host string
	Path string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("route_not_found: no route matches host=%q path=%q", e.Host, e.Path)
}

func (e *RouteNotFoundError) Code() string { return "route_not_found" }

func (e *RouteNotFoundError) Detail() map[string]any {
	return map[string]any{"host": e.Host, "path": e.Path}
}
