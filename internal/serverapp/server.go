package serverapp

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/xiheling1/mask/internal/config"
	"github.com/xiheling1/mask/internal/httpmw"
	"github.com/xiheling1/mask/internal/table"
	"github.com/xiheling1/mask/internal/telemetry"
)

// Options configure the application assembly.
type Options struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry telemetry.Repository
}

// App bundles the assembled service: registry, drag manager and telemetry
// wired together behind one HTTP handler.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Registry  *table.Registry
	Drags     *table.DragManager
	Telemetry telemetry.Repository
}

// New assembles the application from options.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NewMemoryRepository()
	}

	registry := table.NewRegistry(table.Tuning{
		SnapDistance:     opts.Config.Tuning.SnapDistance,
		SlotDistance:     opts.Config.Tuning.SlotDistance,
		OverlapThreshold: opts.Config.Tuning.OverlapThreshold,
		CardWidth:        opts.Config.Cards.Width,
		CardHeight:       opts.Config.Cards.Height,
	})
	registry.AddObserver(telemetry.NewTableRecorder(opts.Telemetry))

	return &App{
		Config:    opts.Config,
		Logger:    opts.Logger,
		Registry:  registry,
		Drags:     table.NewDragManager(registry),
		Telemetry: opts.Telemetry,
	}, nil
}

// Handler returns the service's HTTP handler with middleware applied.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	th := table.NewHandler(a.Registry, a.Drags)
	mux.HandleFunc("/api/table/state", th.GetState)
	mux.HandleFunc("/api/table/cmd", th.Command)
	mux.HandleFunc("/api/table/drag", a.handleDragSocket)
	mux.HandleFunc("/api/telemetry/stats", a.handleStats)
	mux.HandleFunc("/api/healthz", handleHealthz)

	return httpmw.Chain(mux,
		httpmw.WithRequestID,
		httpmw.WithRecover(a.Logger),
		httpmw.WithAccessLog(a.Logger),
	)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

// GET /api/telemetry/stats?since=RFC3339
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid since parameter", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	events, err := a.Telemetry.GetEvents(since, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := telemetry.CalculateStats(events, since)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	writeJSONBody(w, stats)
}
