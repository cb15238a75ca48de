package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pingmyweb/pingd/internal/metrics"
	"github.com/pingmyweb/pingd/internal/ping"
	"github.com/pingmyweb/pingd/internal/urlutil"
)

const (
	maxHistoryPageSize     = 100
	defaultHistoryPageSize = 20
	enqueueTimeout         = 5 * time.Second
)

type pingRequest struct {
	URL          string   `json:"url"`
	Title        string   `json:"title,omitempty"`
	RSSURL       string   `json:"rss_url,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	CheckContent bool     `json:"check_content,omitempty"`
	Force        bool     `json:"force,omitempty"`
}

func (s *Server) dispatchSync(w http.ResponseWriter, r *http.Request) {
	s.runDispatch(w, r, nil)
}

// dispatchSearchEngines is the convenience route that always pings the
// search engine category, whatever the request body says.
func (s *Server) dispatchSearchEngines(w http.ResponseWriter, r *http.Request) {
	s.runDispatch(w, r, []ping.Category{ping.CategorySearchEngines})
}

func (s *Server) runDispatch(w http.ResponseWriter, r *http.Request, categories []ping.Category) {
	user, ok := userFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	var req pingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if categories == nil {
		categories = toCategories(req.Categories)
	}

	requestID, err := s.ids.NewID()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "generate request id")
		return
	}

	start := time.Now()
	outcome, err := s.dispatcher.Dispatch(r.Context(), ping.DispatchRequest{
		RequestID:    requestID,
		UserID:       user.ID,
		URL:          req.URL,
		Title:        req.Title,
		RSSURL:       req.RSSURL,
		Categories:   categories,
		CheckContent: req.CheckContent,
		Force:        req.Force,
	})
	if err != nil {
		metrics.ObserveDispatch("sync", "rejected", time.Since(start))
		s.writeDispatchError(w, err)
		return
	}
	metrics.ObserveDispatch("sync", "ok", time.Since(start))
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) dispatchAsync(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	var req pingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	// Validate eagerly so the caller hears about a bad URL now, not in a
	// worker log later.
	if _, err := urlutil.Normalize(req.URL); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid url")
		return
	}

	requestID, err := s.ids.NewID()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "generate request id")
		return
	}

	cmd := ping.DispatchCommand{
		Request: ping.DispatchRequest{
			RequestID:    requestID,
			UserID:       user.ID,
			URL:          req.URL,
			Title:        req.Title,
			RSSURL:       req.RSSURL,
			Categories:   toCategories(req.Categories),
			CheckContent: req.CheckContent,
			Force:        req.Force,
		},
		Submitted: s.clock.Now().Unix(),
	}

	queueCtx, cancel := context.WithTimeout(r.Context(), enqueueTimeout)
	defer cancel()
	if err := s.queue.Enqueue(queueCtx, cmd); err != nil {
		s.logger.Error("enqueue dispatch failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		s.writeError(w, http.StatusServiceUnavailable, "queue full")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"request_id": requestID,
		"status":     "queued",
	})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	q := r.URL.Query()
	filter := ping.HistoryFilter{URLSubstring: q.Get("url")}
	if raw := q.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		filter.From = &ts
	}
	if raw := q.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		filter.To = &ts
	}

	page := ping.Page{
		Limit:  intParam(q.Get("limit"), defaultHistoryPageSize),
		Offset: intParam(q.Get("offset"), 0),
	}
	if page.Limit > maxHistoryPageSize {
		page.Limit = maxHistoryPageSize
	}
	if page.Limit <= 0 {
		page.Limit = defaultHistoryPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	result, err := s.history.Query(r.Context(), user.ID, filter, page)
	if err != nil {
		s.logger.Error("history query failed", zap.String("user_id", user.ID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if result.Records == nil {
		result.Records = []ping.HistoryRecord{}
	}
	s.writeJSON(w, http.StatusOK, result)
}

type urlStatusResponse struct {
	URL        ping.TrackedURL     `json:"url"`
	LastReport *ping.HistoryRecord `json:"last_report,omitempty"`
}

func (s *Server) getURL(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	urlID := chi.URLParam(r, "url_id")
	rec, err := s.urls.Get(r.Context(), user.ID, urlID)
	if errors.Is(err, ping.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "url not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "url lookup failed")
		return
	}

	resp := urlStatusResponse{URL: rec}
	page, err := s.history.Query(r.Context(), user.ID, ping.HistoryFilter{URLID: rec.ID}, ping.Page{Limit: 1})
	if err != nil {
		s.logger.Warn("last report lookup failed", zap.String("url_id", urlID), zap.Error(err))
	} else if len(page.Records) > 0 {
		resp.LastReport = &page.Records[0]
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getServices(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tier":     user.Plan.Tier,
		"services": s.catalog.WithAvailability(user.Plan.Tier),
	})
}

func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ping.ErrInvalidURL):
		s.writeError(w, http.StatusBadRequest, "invalid url")
	case errors.Is(err, ping.ErrUserInactive):
		s.writeError(w, http.StatusForbidden, "account disabled")
	case errors.Is(err, ping.ErrNoContentChange):
		// Unchanged content is a no-op, not a failure.
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"skipped": true,
			"reason":  "no_content_change",
		})
	case ping.IsQuotaExceeded(err):
		var qe *ping.QuotaExceededError
		errors.As(err, &qe)
		s.writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": "daily ping quota exhausted",
			"limit": qe.Limit,
		})
	default:
		s.writeError(w, http.StatusInternalServerError, "dispatch failed")
	}
}

func toCategories(raw []string) []ping.Category {
	if len(raw) == 0 {
		return nil
	}
	out := make([]ping.Category, 0, len(raw))
	for _, c := range raw {
		out = append(out, ping.Category(c))
	}
	return out
}

func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
