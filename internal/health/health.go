package health

import (
	"net/http"
	"sync/atomic"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Gate reports readiness. It starts closed; the server opens it once it is
// listening and closes it again when shutdown begins, so load balancers
// stop routing lookups before in-flight ones are drained.
type Gate struct {
	ready atomic.Bool
}

// Open marks the service ready.
func (g *Gate) Open() { g.ready.Store(true) }

// Close marks the service not ready.
func (g *Gate) Close() { g.ready.Store(false) }

// Ready reports the current state.
func (g *Gate) Ready() bool { return g.ready.Load() }

// Readyz returns 200 "ready\n" while the gate is open and 503 otherwise.
func (g *Gate) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !g.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
