package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zuriscript/signalstory-sub000/config"
	"github.com/zuriscript/signalstory-sub000/devtools"
	"github.com/zuriscript/signalstory-sub000/extensions/metrics"
	"github.com/zuriscript/signalstory-sub000/extensions/status"
	"github.com/zuriscript/signalstory-sub000/extensions/tracing"
	"github.com/zuriscript/signalstory-sub000/history"
	"github.com/zuriscript/signalstory-sub000/mediator"
	"github.com/zuriscript/signalstory-sub000/persistence"
	"github.com/zuriscript/signalstory-sub000/snapshot"
	"github.com/zuriscript/signalstory-sub000/store"
)

// Counter is the demo state served by storectl.
type Counter struct {
	Value int `json:"value"`
	Ticks int `json:"ticks"`
}

// ResetEvent sets the counter to the published value.
var ResetEvent = mediator.NewEvent[int]("counter.reset")

// app wires one counter container to every extension and exposes it over
// HTTP.
type app struct {
	logger   *slog.Logger
	registry *store.Registry
	counter  *store.Container[Counter]
	history  *history.Extension
	status   *status.Extension
	bridge   *devtools.Bridge
	mediator *mediator.Mediator
	persist  persistence.Store
	metrics  *prometheus.Registry
	tick     store.Effect

	snapshots map[string]*snapshot.Snapshot
	mu        sync.Mutex
}

func newApp(cfg *config.Config, logger *slog.Logger, tickInterval time.Duration) (*app, error) {
	a := &app{
		logger:    logger,
		registry:  store.NewRegistry(),
		history:   history.New(),
		status:    status.New(),
		metrics:   prometheus.NewRegistry(),
		snapshots: make(map[string]*snapshot.Snapshot),
	}

	met, err := metrics.New(cfg.Metrics, a.metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics extension: %w", err)
	}

	devCfg := cfg.Devtools
	devCfg.Logger = logger
	a.bridge = devtools.New(devCfg, devtools.WithRegistry(a.registry))

	medCfg := cfg.Mediator
	medCfg.Logger = logger
	a.mediator = mediator.New(medCfg)

	extensions := []store.Extension{a.history, a.status, met, tracing.New(), a.bridge}

	a.persist, err = persistence.Open(&cfg.Persistence, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open persistence: %w", err)
	}
	if a.persist != nil {
		extensions = append(extensions, persistence.NewExtension(a.persist,
			persistence.WithPrefix(cfg.Persistence.Prefix),
			persistence.WithLogger(logger),
		))
	}

	storeCfg := cfg.Store
	storeCfg.Name = "counter"
	a.counter, err = store.New(Counter{}, storeCfg,
		store.WithExtensions(extensions...),
		store.WithRegistry(a.registry),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	a.tick = tickEffect(a.counter, tickInterval)

	err = mediator.Register(a.mediator, ResetEvent, a.counter,
		func(c *store.Container[Counter], msg mediator.Message[int]) error {
			return c.Set(Counter{Value: msg.Payload}, "reset")
		},
		mediator.WithSource("storectl"),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to register reset handler: %w", err)
	}

	return a, nil
}

// tickEffect increments Ticks once per interval, count times. The first
// argument is the count.
func tickEffect(c *store.Container[Counter], interval time.Duration) store.Effect {
	return store.NewEffect("tick", func(ctx context.Context, args ...any) store.Result {
		count, ok := args[0].(int)
		if !ok || count < 0 {
			return store.Failure(fmt.Errorf("tick count must be a non-negative int, got %v", args[0]))
		}

		values := make(chan any)
		errs := make(chan error, 1)
		go func() {
			defer close(values)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for i := 0; i < count; i++ {
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				case <-ticker.C:
				}
				if err := c.Update(func(s Counter) Counter {
					s.Ticks++
					return s
				}, "tick"); err != nil {
					errs <- err
					return
				}
				values <- c.Read().Ticks
			}
		}()
		return store.Stream(values, errs)
	})
}

func (a *app) close() error {
	if a.counter != nil {
		a.mediator.Unregister(a.counter)
	}
	return persistence.Close(a.persist)
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/counter", func(r chi.Router) {
		r.Get("/", a.handleState)
		r.Post("/increment", a.handleIncrement)
		r.Post("/undo", a.handleUndo)
		r.Post("/redo", a.handleRedo)
		r.Post("/reset", a.handleReset)
		r.Post("/tick", a.handleTick)
		r.Get("/history", a.handleHistory)
	})

	r.Route("/snapshots", func(r chi.Router) {
		r.Post("/", a.handleSnapshot)
		r.Post("/{id}/restore", a.handleRestore)
	})

	r.Handle("/devtools", a.bridge)
	r.Handle(devtools.NewJumpHandler(a.bridge))
	r.Handle(devtools.NewListHandler(a.bridge))
	r.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))

	return r
}

type stateResponse struct {
	Counter  Counter  `json:"counter"`
	CanUndo  bool     `json:"can_undo"`
	CanRedo  bool     `json:"can_redo"`
	Loading  bool     `json:"loading"`
	Modified bool     `json:"modified"`
	Pending  []string `json:"pending,omitempty"`
	Error    string   `json:"last_error,omitempty"`
}

func (a *app) state() stateResponse {
	resp := stateResponse{
		Counter:  a.counter.Read(),
		CanUndo:  a.history.CanUndo(a.counter),
		CanRedo:  a.history.CanRedo(a.counter),
		Loading:  a.status.IsLoading(a.counter),
		Modified: a.status.IsModified(a.counter),
		Pending:  a.status.Pending(a.counter),
	}
	if err := a.status.LastError(a.counter); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (a *app) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.state())
}

func (a *app) handleIncrement(w http.ResponseWriter, r *http.Request) {
	by, err := intParam(r, "by", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = a.counter.Update(func(s Counter) Counter {
		s.Value += by
		return s
	}, "increment")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func (a *app) handleUndo(w http.ResponseWriter, r *http.Request) {
	a.step(w, a.history.Undo)
}

func (a *app) handleRedo(w http.ResponseWriter, r *http.Request) {
	a.step(w, a.history.Redo)
}

func (a *app) step(w http.ResponseWriter, fn func(store.Handle) (bool, error)) {
	moved, err := fn(a.counter)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	if !moved {
		writeError(w, http.StatusConflict, errors.New("nothing to step to"))
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func (a *app) handleReset(w http.ResponseWriter, r *http.Request) {
	value, err := intParam(r, "value", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := mediator.Publish(a.mediator, ResetEvent, value); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func (a *app) handleTick(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// The stream outlives the request.
	inv, err := a.counter.RunEffect(context.WithoutCancel(r.Context()), a.tick, count)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"invocation_id": inv.ID()})
}

type historyEntry struct {
	Kind    string `json:"kind"`
	Command string `json:"command"`
	Before  any    `json:"before"`
	Index   int    `json:"index"`
}

func (a *app) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := a.history.Entries(a.counter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]historyEntry, len(entries))
	for i, e := range entries {
		out[i] = historyEntry{
			Kind:    e.Kind.String(),
			Command: e.Command,
			Before:  e.Before,
			Index:   e.Index,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *app) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := snapshot.Create(a.registry, snapshot.OfType[Counter]())

	a.mu.Lock()
	a.snapshots[snap.ID()] = snap
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         snap.ID(),
		"created_at": snap.CreatedAt(),
		"containers": snap.Len(),
	})
}

func (a *app) handleRestore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a.mu.Lock()
	snap, ok := a.snapshots[id]
	a.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("snapshot not found: %s", id))
		return
	}
	if err := snap.Restore(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
