package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/storefront-crawler/internal/crawler"
	"github.com/maltedev/storefront-crawler/internal/extract"
	"github.com/maltedev/storefront-crawler/internal/sites"
)

// Crawler runs crawl requests. *crawler.Crawler satisfies it.
type Crawler interface {
	Crawl(ctx context.Context, req crawler.Request) (*extract.Result, error)
	CrawlAll(ctx context.Context, reqs []crawler.Request) []crawler.Outcome
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	crawler Crawler
	sites   sites.Store
	checks  map[string]HealthCheck
	logger  *slog.Logger
}

func NewHandlers(c Crawler, store sites.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		crawler: c,
		sites:   store,
		checks:  make(map[string]HealthCheck),
		logger:  logger.With("component", "api"),
	}
}

// AddHealthCheck registers a named dependency for /health.
func (h *Handlers) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

type CrawlResponse struct {
	Products []extract.Product `json:"products"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// Crawl handles a single crawl request.
func (h *Handlers) Crawl(w http.ResponseWriter, r *http.Request) {
	var req crawler.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := h.crawler.Crawl(r.Context(), req)
	if err != nil {
		ce := crawler.Classify(err, req.URL)
		h.respondError(w, statusFor(ce.Kind), ce.Message())
		return
	}

	h.respondJSON(w, http.StatusOK, CrawlResponse{Products: result.Products})
}

type BatchSite struct {
	URL     string `json:"url"`
	BaseURL string `json:"baseUrl"`
}

// BatchRequest selects registered sites by id and/or ad-hoc sites. An empty
// request crawls every registered site.
type BatchRequest struct {
	SiteIDs []string    `json:"siteIds,omitempty"`
	Sites   []BatchSite `json:"sites,omitempty"`
	Limit   int         `json:"limit,omitempty"`
}

type BatchResult struct {
	SiteID   string            `json:"siteId,omitempty"`
	URL      string            `json:"url"`
	Products []extract.Product `json:"products,omitempty"`
	Message  string            `json:"message,omitempty"`
}

type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// CrawlBatch crawls several sites one after another. Each site gets its own
// result entry; a failure does not abort the batch.
func (h *Handlers) CrawlBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	ctx := r.Context()
	if len(req.SiteIDs) == 0 && len(req.Sites) == 0 {
		all, err := h.sites.List(ctx)
		if err != nil {
			h.logger.Error("failed to list sites", "error", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to load sites.")
			return
		}
		for _, s := range all {
			req.SiteIDs = append(req.SiteIDs, s.ID)
		}
	}

	results := make([]BatchResult, 0, len(req.SiteIDs)+len(req.Sites))
	var (
		reqs  []crawler.Request
		slots []int
	)
	queue := func(res BatchResult, baseURL string) {
		slots = append(slots, len(results))
		results = append(results, res)
		reqs = append(reqs, crawler.Request{URL: res.URL, BaseURL: baseURL, Limit: req.Limit})
	}

	for _, id := range req.SiteIDs {
		site, err := h.sites.Get(ctx, id)
		if err != nil {
			msg := "Site not found."
			if !errors.Is(err, sites.ErrNotFound) {
				h.logger.Error("failed to get site", "id", id, "error", err)
				msg = "Failed to load site."
			}
			results = append(results, BatchResult{SiteID: id, Message: msg})
			continue
		}
		queue(BatchResult{SiteID: site.ID, URL: site.URL}, site.BaseURL)
	}
	for _, s := range req.Sites {
		queue(BatchResult{URL: s.URL}, s.BaseURL)
	}

	for i, outcome := range h.crawler.CrawlAll(ctx, reqs) {
		res := &results[slots[i]]
		if outcome.Err != nil {
			res.Message = crawler.Classify(outcome.Err, res.URL).Message()
			continue
		}
		res.Products = outcome.Result.Products
	}

	h.respondJSON(w, http.StatusOK, BatchResponse{Results: results})
}

func (h *Handlers) ListSites(w http.ResponseWriter, r *http.Request) {
	list, err := h.sites.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list sites", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to load sites.")
		return
	}
	h.respondJSON(w, http.StatusOK, list)
}

type AddSiteRequest struct {
	URL string `json:"url"`
}

func (h *Handlers) AddSite(w http.ResponseWriter, r *http.Request) {
	var req AddSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	site, err := sites.NewSite(req.URL)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid site URL.")
		return
	}

	if err := h.sites.Add(r.Context(), site); err != nil {
		if errors.Is(err, sites.ErrDuplicate) {
			h.respondError(w, http.StatusConflict, "Site already registered.")
			return
		}
		h.logger.Error("failed to add site", "url", req.URL, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to add site.")
		return
	}

	h.logger.Info("site added", "id", site.ID, "url", site.URL)
	h.respondJSON(w, http.StatusCreated, site)
}

func (h *Handlers) DeleteSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.sites.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sites.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Site not found.")
			return
		}
		h.logger.Error("failed to delete site", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to delete site.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health runs every registered check and reports 503 if any fails.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](r.Context()); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	health := map[string]interface{}{"status": "ok"}
	if status != http.StatusOK {
		health["status"] = "error"
	}
	if len(deps) > 0 {
		health["checks"] = deps
	}
	h.respondJSON(w, status, health)
}

func statusFor(kind crawler.Kind) int {
	switch kind {
	case crawler.KindInvalidInput:
		return http.StatusBadRequest
	case crawler.KindNoProductsFound:
		return http.StatusUnprocessableEntity
	case crawler.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{Message: message})
}
