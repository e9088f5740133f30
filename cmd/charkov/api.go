package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/CTAG07/charkov/pkg/corpus"
	"github.com/CTAG07/charkov/pkg/markov"
	lru "github.com/hashicorp/golang-lru/v2"
)

// modelKey identifies a trained model in the cache.
type modelKey struct {
	corpus string
	window int
}

// API holds the dependencies for the HTTP JSON handlers.
type API struct {
	store  *corpus.Store
	config *Config
	models *lru.Cache[modelKey, *markov.Model]
	logger *slog.Logger

	// versions counts replacements and removals per corpus name. A model is
	// only cached if its corpus version did not change while it trained.
	mu       sync.Mutex
	versions map[string]uint64
}

// NewAPI creates the API with a model cache sized from the server config.
func NewAPI(store *corpus.Store, config *Config, logger *slog.Logger) (*API, error) {
	size := config.Server.ModelCacheSize
	if size < 1 {
		size = 1
	}
	models, err := lru.New[modelKey, *markov.Model](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create model cache: %w", err)
	}
	return &API{
		store:    store,
		config:   config,
		models:   models,
		logger:   logger,
		versions: make(map[string]uint64),
	}, nil
}

// RegisterRoutes sets up the routing for all /api endpoints.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/corpora", a.handleListAndCreateCorpora)
	mux.HandleFunc("/api/corpora/", a.handleCorpusByName)
	mux.HandleFunc("/api/generate", a.handleGenerate)
	mux.HandleFunc("/api/runs", a.handleRuns)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/version", a.handleVersion)
}

type CreateCorpusRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type GenerateRequest struct {
	Corpus      string `json:"corpus"`
	Window      int    `json:"window"`
	SeedText    string `json:"seed_text"`
	Length      *int   `json:"length"`
	Seed        *int64 `json:"seed"`
	TotalLength *bool  `json:"total_length"`
	Record      bool   `json:"record"`
}

type GenerateResponse struct {
	Output    string `json:"output"`
	Generated int    `json:"generated"`
	RunID     string `json:"run_id,omitempty"`
}

// handleListAndCreateCorpora handles GET for listing and POST for storing corpora.
func (a *API) handleListAndCreateCorpora(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		infos, err := a.store.ListCorpora(r.Context())
		if err != nil {
			a.logger.Error("Failed to list corpora", "error", err)
			a.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve corpora: %v", err))
			return
		}
		a.respondWithJSON(w, http.StatusOK, infos)

	case http.MethodPost:
		var req CreateCorpusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		info, err := a.store.AddCorpus(r.Context(), req.Name, strings.NewReader(req.Text))
		if err != nil {
			if errors.Is(err, corpus.ErrInvalidName) || errors.Is(err, corpus.ErrInvalidText) {
				a.respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			a.logger.Error("Failed to store corpus", "corpus_name", req.Name, "error", err)
			a.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to store corpus: %v", err))
			return
		}
		a.evictCorpus(info.Name)
		a.respondWithJSON(w, http.StatusCreated, info)

	default:
		w.Header().Set("Allow", "GET, POST")
		a.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleCorpusByName handles GET and DELETE for a single corpus.
func (a *API) handleCorpusByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/corpora/")
	if name == "" {
		a.respondWithError(w, http.StatusBadRequest, "Corpus name is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		info, err := a.store.GetCorpus(r.Context(), name)
		if err != nil {
			a.respondWithStoreError(w, name, err)
			return
		}
		a.respondWithJSON(w, http.StatusOK, info)

	case http.MethodDelete:
		if err := a.store.RemoveCorpus(r.Context(), name); err != nil {
			a.respondWithStoreError(w, name, err)
			return
		}
		a.evictCorpus(name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, DELETE")
		a.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleGenerate trains (or reuses) a model and extends the seed text.
func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		a.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Corpus == "" {
		a.respondWithError(w, http.StatusBadRequest, "Field 'corpus' is required")
		return
	}

	gc := a.config.Generate
	window := req.Window
	if window == 0 {
		window = gc.WindowLength
	}
	length := gc.Length
	if req.Length != nil {
		length = *req.Length
	}
	total := gc.TotalLength
	if req.TotalLength != nil {
		total = *req.TotalLength
	}
	if err := checkWindow(window, a.config.Server.MaxWindowLength); err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if length < 0 || length > a.config.Server.MaxGenerateLength {
		a.respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Field 'length' must be between 0 and %d", a.config.Server.MaxGenerateLength))
		return
	}

	model, err := a.model(r.Context(), req.Corpus, window)
	if err != nil {
		switch {
		case errors.Is(err, markov.ErrInvalidWindowLength), errors.Is(err, markov.ErrCorpusTooShort):
			a.respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			a.respondWithStoreError(w, req.Corpus, err)
		}
		return
	}

	var src markov.RandomSource
	if req.Seed != nil {
		src = markov.NewSource(*req.Seed)
	} else {
		src = markov.NewEntropySource()
	}
	output := model.Generate(req.SeedText, length, markov.WithTotalLength(total), markov.WithRandom(src))

	resp := GenerateResponse{
		Output:    output,
		Generated: utf8.RuneCountInString(output) - utf8.RuneCountInString(req.SeedText),
	}
	if req.Record {
		run, err := a.store.RecordRun(r.Context(), corpus.Run{
			Corpus:       req.Corpus,
			WindowLength: window,
			Seed:         req.Seed,
			SeedText:     req.SeedText,
			Length:       length,
			TotalLength:  total,
			Output:       output,
		})
		if err != nil {
			a.logger.Error("Failed to record run", "corpus_name", req.Corpus, "error", err)
			a.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to record run: %v", err))
			return
		}
		resp.RunID = run.ID
	}
	a.respondWithJSON(w, http.StatusOK, resp)
}

// handleRuns lists recorded runs, optionally filtered by ?corpus= and ?limit=.
func (a *API) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		a.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.respondWithError(w, http.StatusBadRequest, "Query parameter 'limit' must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := a.store.ListRuns(r.Context(), r.URL.Query().Get("corpus"), limit)
	if err != nil {
		a.logger.Error("Failed to list runs", "error", err)
		a.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	a.respondWithJSON(w, http.StatusOK, runs)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		a.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stats, err := a.store.GetStats(r.Context())
	if err != nil {
		a.logger.Error("Failed to get stats", "error", err)
		a.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve stats: %v", err))
		return
	}
	a.respondWithJSON(w, http.StatusOK, stats)
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		a.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	a.respondWithJSON(w, http.StatusOK, VersionInfo{Version: Version, Commit: Commit, BuildDate: BuildDate})
}

// model returns the trained model for a corpus and window length, training
// and caching it on a miss. Cached models are only read, so concurrent
// requests share them and pass their own random source.
func (a *API) model(ctx context.Context, name string, window int) (*markov.Model, error) {
	key := modelKey{corpus: name, window: window}
	if model, ok := a.models.Get(key); ok {
		return model, nil
	}

	model, err := markov.NewModel(window)
	if err != nil {
		return nil, err
	}
	model.SetLogger(a.logger)

	version := a.corpusVersion(name)
	text, err := a.store.OpenCorpus(ctx, name)
	if err != nil {
		return nil, err
	}
	if err = model.Train(ctx, text); err != nil {
		return nil, err
	}
	if !a.cacheModel(key, version, model) {
		a.logger.Debug("Corpus changed during training, model not cached", "corpus_name", name, "window_length", window)
		return model, nil
	}
	a.logger.Debug("Model cached", "corpus_name", name, "window_length", window, "cached", a.models.Len())
	return model, nil
}

func (a *API) corpusVersion(name string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.versions[name]
}

// cacheModel adds model to the cache unless its corpus was replaced or
// removed after version was read.
func (a *API) cacheModel(key modelKey, version uint64, model *markov.Model) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.versions[key.corpus] != version {
		return false
	}
	a.models.Add(key, model)
	return true
}

// evictCorpus drops every cached model trained on the named corpus and
// invalidates models still training on it.
func (a *API) evictCorpus(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.versions[name]++
	for _, key := range a.models.Keys() {
		if key.corpus == name {
			a.models.Remove(key)
		}
	}
}

func (a *API) respondWithStoreError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, corpus.ErrCorpusNotFound) {
		a.respondWithError(w, http.StatusNotFound, fmt.Sprintf("Corpus '%s' not found", name))
		return
	}
	a.logger.Error("Corpus store error", "corpus_name", name, "error", err)
	a.respondWithError(w, http.StatusInternalServerError, err.Error())
}

func (a *API) respondWithError(w http.ResponseWriter, code int, message string) {
	a.respondWithJSON(w, code, map[string]string{"error": message})
}

func (a *API) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			a.logger.Error("Failed to encode JSON response", "status", code, "error", err)
		}
	}
}
