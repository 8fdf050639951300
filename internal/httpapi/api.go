package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"carefront.org/internal/auth"
	"carefront.org/internal/obs"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the auth core.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

// New wires routes. Every protected domain router is expected to mount
// behind Gate; the auth endpoints themselves are registered here.
func New(rp ReadyProbe, version string, svc *auth.Service) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       svc,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/healthz", a.healthz)
	a.mux.HandleFunc("/readyz", a.ready)
	a.mux.HandleFunc("/v1/info", a.info)
	a.mux.Handle("/metrics", obs.Handler())

	// Auth endpoints answer on both the bare paths and the versioned
	// aliases so clients written against either surface work.
	for _, prefix := range []string{"/auth", "/v1/auth"} {
		a.mux.HandleFunc(prefix+"/register", a.handleRegister)
		a.mux.HandleFunc(prefix+"/login", a.handleLogin)
		a.mux.HandleFunc(prefix+"/me", a.handleMe)
		a.mux.HandleFunc(prefix+"/logout", a.handleLogout)
	}

	a.mux.Handle("/v1/identities", a.RequireRole(auth.RoleAdmin)(http.HandlerFunc(a.handleIdentities)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Mount registers a domain handler behind the module/action gate. Domain
// routers (patients, doctors, appointments, ...) use this so every
// request passes the evaluator before any business logic runs.
func (a *API) Mount(pattern string, module auth.Module, action auth.Action, handler http.Handler) {
	a.mux.Handle(pattern, a.Gate(module, action)(handler))
}

// Handler returns the full middleware chain around the router.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "carefront-api",
		"version": a.version,
	})
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "carefront-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
