// Package api serves the analysis engine and the collected-query store over
// HTTP. The API is versioned under /api/v1.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simplyadil/QueryIQ/internal/engine"
	"github.com/simplyadil/QueryIQ/internal/feature"
	"github.com/simplyadil/QueryIQ/internal/predict"
	"github.com/simplyadil/QueryIQ/internal/store"
	"github.com/simplyadil/QueryIQ/internal/suggest"
)

// API wires the engine, store and model registry into HTTP handlers.
type API struct {
	engine    *engine.Engine
	store     *store.DB
	registry  *predict.Registry
	modelPath string
	gatherer  prometheus.Gatherer
	logger    log.Logger
}

// New builds the API. registry and gatherer may be nil, which disables the
// model endpoints' reload ability and the /metrics route respectively.
func New(eng *engine.Engine, st *store.DB, registry *predict.Registry, modelPath string, gatherer prometheus.Gatherer, logger log.Logger) *API {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &API{
		engine:    eng,
		store:     st,
		registry:  registry,
		modelPath: modelPath,
		gatherer:  gatherer,
		logger:    log.With(logger, "component", "api"),
	}
}

// Handler returns the fully routed HTTP handler.
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all the API's routes.
func (a *API) RegisterRoutes(r *mux.Router) {
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/analyze", a.analyzeHandler()).Methods(http.MethodPost)
	v1.HandleFunc("/queries/recent", a.recentQueriesHandler()).Methods(http.MethodGet)
	v1.HandleFunc("/queries/slowest", a.slowestQueriesHandler()).Methods(http.MethodGet)
	v1.HandleFunc("/queries/{id}", a.queryHandler()).Methods(http.MethodGet)
	v1.HandleFunc("/queries/{id}/suggestions", a.suggestionsHandler()).Methods(http.MethodGet)
	v1.HandleFunc("/model", a.modelInfoHandler()).Methods(http.MethodGet)
	v1.HandleFunc("/model/reload", a.modelReloadHandler()).Methods(http.MethodPost)

	r.HandleFunc("/healthz", a.healthzHandler()).Methods(http.MethodGet)
	if a.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}
}

// AnalyzeRequest is the POST /analyze body.
type AnalyzeRequest struct {
	QueryID   string          `json:"query_id,omitempty"`
	QueryText string          `json:"query_text"`
	PlanJSON  json.RawMessage `json:"plan_json,omitempty"`
	Stats     *feature.Stats  `json:"stats,omitempty"`
	// Persist stores the query and its analysis so later reads under
	// /queries can find them.
	Persist bool `json:"persist,omitempty"`
}

func (a *API) analyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		analysis, err := a.engine.Analyze(req.QueryID, req.QueryText, req.PlanJSON, req.Stats)
		if errors.Is(err, engine.ErrEmptyQuery) {
			a.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if req.Persist && a.store != nil {
			if err := a.persistAnalysis(analysis, req.Stats); err != nil {
				a.writeError(w, http.StatusInternalServerError, "persist analysis: "+err.Error())
				return
			}
		}

		a.writeJSON(w, http.StatusOK, analysis)
	}
}

func (a *API) persistAnalysis(analysis *engine.Analysis, stats *feature.Stats) error {
	rec := &store.QueryRecord{
		ID:          analysis.QueryID,
		Text:        analysis.Query,
		Hash:        store.HashQueryText(analysis.Query),
		CollectedAt: time.Now().UTC(),
	}
	if stats != nil {
		rec.MeanExecTimeMs = stats.MeanExecTimeMs
		rec.Calls = stats.Calls
		rec.TotalExecTimeMs = stats.MeanExecTimeMs * float64(stats.Calls)
	}
	if err := a.store.UpsertQuery(rec); err != nil {
		return err
	}
	_, err := a.store.SaveAnalysis(&store.AnalysisRecord{
		QueryID:              analysis.QueryID,
		AnalyzedAt:           rec.CollectedAt,
		Features:             analysis.Vector,
		PlanMetrics:          analysis.PlanMetrics,
		PredictedTimeMs:      analysis.Prediction.PredictedTimeMs,
		PredictionConfidence: analysis.Prediction.Confidence,
		ModelVersion:         analysis.Prediction.ModelVersion,
	}, analysis.Suggestions)
	return err
}

func (a *API) recentQueriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := a.limitParam(w, r)
		if !ok {
			return
		}
		records, err := a.store.RecentQueries(limit)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if records == nil {
			records = []store.QueryRecord{}
		}
		a.writeJSON(w, http.StatusOK, records)
	}
}

func (a *API) slowestQueriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := a.limitParam(w, r)
		if !ok {
			return
		}
		records, err := a.store.SlowestQueries(limit)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if records == nil {
			records = []store.QueryRecord{}
		}
		a.writeJSON(w, http.StatusOK, records)
	}
}

// QueryResponse is the GET /queries/{id} body: the collected statement with
// its latest analysis and stored suggestions.
type QueryResponse struct {
	Query       *store.QueryRecord    `json:"query"`
	Analysis    *store.AnalysisRecord `json:"analysis,omitempty"`
	Suggestions []suggest.Suggestion  `json:"suggestions"`
}

func (a *API) queryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		record, err := a.store.GetQuery(id)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			a.writeError(w, http.StatusNotFound, "query not found")
			return
		}

		analysis, err := a.store.LatestAnalysis(id)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		suggestions, err := a.store.SuggestionsForQuery(id)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if suggestions == nil {
			suggestions = []suggest.Suggestion{}
		}

		a.writeJSON(w, http.StatusOK, QueryResponse{
			Query:       record,
			Analysis:    analysis,
			Suggestions: suggestions,
		})
	}
}

func (a *API) suggestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		record, err := a.store.GetQuery(id)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			a.writeError(w, http.StatusNotFound, "query not found")
			return
		}

		suggestions, err := a.store.SuggestionsForQuery(id)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if suggestions == nil {
			suggestions = []suggest.Suggestion{}
		}
		a.writeJSON(w, http.StatusOK, suggestions)
	}
}

// ModelInfo is the GET /model body.
type ModelInfo struct {
	Loaded       bool    `json:"loaded"`
	ModelVersion string  `json:"model_version"`
	Confidence   float64 `json:"confidence,omitempty"`
	Weights      int     `json:"weights,omitempty"`
}

func (a *API) modelInfo() ModelInfo {
	if a.registry == nil {
		return ModelInfo{Loaded: false, ModelVersion: predict.FallbackVersion}
	}
	artifact := a.registry.Current()
	if artifact == nil {
		return ModelInfo{Loaded: false, ModelVersion: predict.FallbackVersion}
	}
	return ModelInfo{
		Loaded:       true,
		ModelVersion: artifact.Version,
		Confidence:   artifact.Confidence,
		Weights:      len(artifact.Weights),
	}
}

func (a *API) modelInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		a.writeJSON(w, http.StatusOK, a.modelInfo())
	}
}

func (a *API) modelReloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if a.registry == nil || a.modelPath == "" {
			a.writeError(w, http.StatusBadRequest, "no model path configured")
			return
		}
		if err := a.registry.LoadFile(a.modelPath); err != nil {
			a.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		a.writeJSON(w, http.StatusOK, a.modelInfo())
	}
}

func (a *API) healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (a *API) limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		a.writeError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return limit, true
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		level.Warn(a.logger).Log("msg", "response encoding failed", "err", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}
