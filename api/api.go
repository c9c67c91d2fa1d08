package api

import (
	"compress/flate"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peerd-dev/peerd/handles"
	"github.com/peerd-dev/peerd/journal"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultSamplesLimit = 100
)

// Logger is a middleware that logs the start and end of each request, along
// with some useful data about what was requested, what the response status was,
// and how long it took to return.
func Logger(l *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			t1 := time.Now()
			defer func() {
				l.Debug("Served",
					zap.String("proto", r.Proto),
					zap.String("path", r.URL.Path),
					zap.String("remote", r.RemoteAddr),
					zap.Duration("lat", time.Since(t1)),
					zap.Int("status", ww.Status()),
					zap.Int("size", ww.BytesWritten()),
					zap.String("reqId", middleware.GetReqID(r.Context())))
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

type API struct {
	ctx      context.Context
	wait     func() error
	registry *handles.Registry
	journal  *journal.Journal
	srv      *http.Server
}

func NewAPI(registry *handles.Registry, journal *journal.Journal, bind string) (*API, error) {
	if bind == "" {
		return nil, errors.New("empty address to bind")
	}
	a := API{registry: registry, journal: journal}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(zap.L()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))
	r.Use(middleware.Compress(flate.DefaultCompression))
	r.Mount("/api", a.routes())
	a.srv = &http.Server{Addr: bind, Handler: r, ReadHeaderTimeout: defaultTimeout, ReadTimeout: defaultTimeout}
	return &a, nil
}

func (a *API) Run(ctx context.Context) {
	g, gc := errgroup.WithContext(ctx)
	a.ctx = gc
	a.wait = g.Wait

	g.Go(a.runServer)
}

func (a *API) Shutdown() {
	if err := a.srv.Shutdown(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
		zap.S().Errorf("Failed to shutdown API: %v", err)
	}
	if err := a.wait(); err != nil {
		zap.S().Warnf("Failed to shutdown API: %v", err)
	}
	zap.S().Info("API shutdown successfully")
}

func (a *API) runServer() error {
	err := a.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.S().Fatalf("Failed to start API: %v", err)
		return err
	}
	return nil
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", a.status)                   // Status information
	r.Get("/handles", a.handles)                 // Returns the list of all live handles
	r.Post("/handles", a.create)                 // Creates a new handle
	r.Get("/handles/{id}", a.handle)             // Returns the handle with the given ID
	r.Delete("/handles/{id}", a.destroy)         // Destroys the handle
	r.Post("/handles/{id}/init", a.init)         // Initializes the handle with the posted configuration
	r.Post("/handles/{id}/start", a.start)       // Starts the handle
	r.Post("/handles/{id}/stop", a.stop)         // Stops the handle
	r.Get("/handles/{id}/counter", a.counter)    // Returns the handle counter
	r.Put("/handles/{id}/counter", a.setCounter) // Sets the handle counter
	r.Get("/samples", a.samples)                 // Returns recent system resource samples
	return r
}

func (a *API) status(w http.ResponseWriter, _ *http.Request) {
	s := statusInfo{
		Counts:          a.registry.Counts(),
		Capacity:        a.registry.Capacity(),
		GoroutinesCount: runtime.NumGoroutine(),
	}
	if err := json.NewEncoder(w).Encode(s); err != nil {
		http.Error(w, fmt.Sprintf("Failed to marshal status to JSON: %v", err), http.StatusInternalServerError)
		return
	}
}

func (a *API) handles(w http.ResponseWriter, _ *http.Request) {
	if err := json.NewEncoder(w).Encode(a.registry.Handles()); err != nil {
		http.Error(w, fmt.Sprintf("Failed to marshal handles to JSON: %v", err), http.StatusInternalServerError)
		return
	}
}

func (a *API) create(w http.ResponseWriter, _ *http.Request) {
	h, err := a.registry.Create()
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	a.writeSnapshot(w, h)
}

func (a *API) handle(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(w, r)
	if !ok {
		return
	}
	a.writeSnapshot(w, h)
}

func (a *API) destroy(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(w, r)
	if !ok {
		return
	}
	a.registry.Destroy(h.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) init(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(w, r)
	if !ok {
		return
	}
	var cfg handles.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("Invalid configuration: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.Init(cfg); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeSnapshot(w, h)
}

func (a *API) start(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(w, r)
	if !ok {
		return
	}
	if err := h.Start(); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeSnapshot(w, h)
}

func (a *API) stop(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(w, r)
	if !ok {
		return
	}
	if err := h.Stop(); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeSnapshot(w, h)
}

func (a *API) counter(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(w, r)
	if !ok {
		return
	}
	v, err := h.Counter()
	if err != nil {
		a.writeError(w, err)
		return
	}
	if encErr := json.NewEncoder(w).Encode(counterInfo{Value: v}); encErr != nil {
		http.Error(w, fmt.Sprintf("Failed to marshal counter to JSON: %v", encErr), http.StatusInternalServerError)
		return
	}
}

func (a *API) setCounter(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(w, r)
	if !ok {
		return
	}
	var req setCounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid counter value: %v", err), http.StatusBadRequest)
		return
	}
	if req.Value > math.MaxUint32 {
		a.writeError(w, handles.ErrInvalidArgument)
		return
	}
	if err := h.SetCounter(uint32(req.Value)); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeSnapshot(w, h)
}

func (a *API) samples(w http.ResponseWriter, r *http.Request) {
	limit := defaultSamplesLimit
	if str := r.URL.Query().Get("limit"); str != "" {
		l, err := strconv.Atoi(str)
		if err != nil || l < 0 {
			http.Error(w, fmt.Sprintf("Invalid samples limit '%s'", str), http.StatusBadRequest)
			return
		}
		limit = l
	}
	samples, err := a.journal.Samples(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to complete request: %v", err), http.StatusInternalServerError)
		return
	}
	if encErr := json.NewEncoder(w).Encode(samples); encErr != nil {
		http.Error(w, fmt.Sprintf("Failed to marshal samples to JSON: %v", encErr), http.StatusInternalServerError)
		return
	}
}

func (a *API) lookup(w http.ResponseWriter, r *http.Request) (*handles.Handle, bool) {
	str := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid handle ID '%s'", str), http.StatusBadRequest)
		return nil, false
	}
	h, ok := a.registry.Handle(id)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown handle ID %d", id), http.StatusNotFound)
		return nil, false
	}
	return h, true
}

func (a *API) writeSnapshot(w http.ResponseWriter, h *handles.Handle) {
	if err := json.NewEncoder(w).Encode(h.Snapshot()); err != nil {
		http.Error(w, fmt.Sprintf("Failed to marshal handle to JSON: %v", err), http.StatusInternalServerError)
		return
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	code, ok := handles.CodeOf(err)
	if !ok || code == handles.Ok {
		http.Error(w, fmt.Sprintf("Failed to complete request: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(httpStatus(code))
	_ = json.NewEncoder(w).Encode(errorInfo{Error: code.String()})
}

func httpStatus(code handles.Code) int {
	switch code {
	case handles.InvalidArgument:
		return http.StatusBadRequest
	case handles.AllocationFailure:
		return http.StatusServiceUnavailable
	case handles.InvalidState, handles.AlreadyInitialized, handles.NotRunning:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
