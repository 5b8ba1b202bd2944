package router

import (
	"errors"
	"sync"
	"testing"
)

// Seed scenario 8: a wildcard-host catch-all coexists with a specific
// host route and a longer path-prefix route for that same host; the
// most specific route wins.
func TestFindPicksMostSpecificRoute(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(Route{Host: Wildcard, PathPrefix: "/", Backends: []string{"catch-all"}})
	tbl.AddRoute(Route{Host: "api.example.com", PathPrefix: "/", Backends: []string{"api-default"}})
	tbl.AddRoute(Route{Host: "api.example.com", PathPrefix: "/v2/orders", Backends: []string{"orders-v2"}})

	match, err := tbl.Find("api.example.com", "/v2/orders/123")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(match.Backends) != 1 || match.Backends[0] != "orders-v2" {
		t.Errorf("got %v, want orders-v2 (longest path prefix on matching host)", match.Backends)
	}

	match, err = tbl.Find("api.example.com", "/v1/accounts")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if match.Backends[0] != "api-default" {
		t.Errorf("got %v, want api-default (host-specific but less specific path)", match.Backends)
	}

	match, err = tbl.Find("other.example.com", "/anything")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if match.Backends[0] != "catch-all" {
		t.Errorf("got %v, want catch-all for an unrecognized host", match.Backends)
	}
}

func TestFindReturnsRouteNotFound(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(Route{Host: "api.example.com", PathPrefix: "/v1", Backends: []string{"v1"}})

	_, err := tbl.Find("unknown.example.com", "/v1")
	var notFound *RouteNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want *RouteNotFoundError", err)
	}
	if notFound.Host != "unknown.example.com" {
		t.Errorf("got host %q, want unknown.example.com", notFound.Host)
	}
}

func TestStripPrefixCarriedThrough(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(Route{Host: "*", PathPrefix: "/api", Backends: []string{"svc"}, StripPrefix: true})

	match, err := tbl.Find("anyhost", "/api/widgets")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !match.StripPrefix || match.Prefix != "/api" {
		t.Errorf("got StripPrefix=%v Prefix=%q, want true /api", match.StripPrefix, match.Prefix)
	}
}

func TestRouteCountAndClear(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(Route{Host: "a", PathPrefix: "/", Backends: []string{"x"}})
	tbl.AddRoute(Route{Host: "b", PathPrefix: "/", Backends: []string{"y"}})
	if tbl.RouteCount() != 2 {
		t.Fatalf("got %d, want 2", tbl.RouteCount())
	}
	tbl.Clear()
	if tbl.RouteCount() != 0 {
		t.Errorf("got %d after Clear, want 0", tbl.RouteCount())
	}
}

// Supplemented: concurrent readers during a hot-reload Replace() must
// never observe a torn/partial table — every Find either sees the old
// full set or the new full set, never a mix (§4.4.4).
func TestReplaceHotReloadNoTornReads(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(Route{Host: "svc", PathPrefix: "/", Backends: []string{"v1"}})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 1)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				match, err := tbl.Find("svc", "/")
				if err != nil {
					continue
				}
				if len(match.Backends) != 1 {
					select {
					case errs <- err:
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		tbl.Replace([]Route{{Host: "svc", PathPrefix: "/", Backends: []string{"v-reloaded"}}})
	}
	close(stop)
	wg.Wait()

	select {
	case err := <-errs:
		t.Fatalf("observed torn read: %v", err)
	default:
	}
}
