// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
)

const maxBody = 1 << 20

type Handlers struct {
	Q *app.QueryService
	A *app.ApprovalService
	I *app.IngestionService
}

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type problem struct {
	Type    string              `json:"type"`
	Title   string              `json:"title"`
	Status  int                 `json:"status"`
	Detail  string              `json:"detail,omitempty"`
	Success bool                `json:"success"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/reviews", h.listReviews)
		r.Post("/reviews", h.createReview)
		r.Get("/reviews/public", h.listPublic)
		r.Get("/reviews/summary", h.summary)
		r.Patch("/reviews/approval", h.setApproval)
		r.Delete("/reviews/{id}", h.deleteReview)
		r.Post("/sync", h.sync)
		r.Post("/sources/{source}/reviews", h.pushReviews)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string, fields ...domain.FieldError) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Errors: fields}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusBadRequest, "Validation Failed", ve.Error(), ve.Fields...)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, app.ErrUnknownSource):
		writeProblem(w, http.StatusNotFound, "Unknown Source", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case domain.IsRetryable(err):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "storage temporarily unavailable")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// etagMatches applies the weak comparison If-None-Match calls for: any
// listed tag, or "*", matches.
func etagMatches(header, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || (tag != "" && strings.TrimPrefix(tag, "W/") == want) {
			return true
		}
	}
	return false
}

// writeCached answers GETs with a weak ETag and honours If-None-Match.
func writeCached(w http.ResponseWriter, r *http.Request, data any) {
	etag, body := calcETagAndBody(envelope{Success: true, Data: data})
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "must be valid JSON: "+err.Error())
	}
	return nil
}

type listResponse struct {
	domain.ReviewsPage
	Summary *app.Summary `json:"summary,omitempty"`
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request, aud app.Audience, withSummary bool) {
	opts, err := app.ParseListOptions(r.URL.Query(), aud)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Q.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := listResponse{ReviewsPage: page}
	if withSummary {
		sum, err := h.Q.Summary(r.Context(), opts.Filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out.Summary = &sum
	}
	writeCached(w, r, out)
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	withSummary, _ := strconv.ParseBool(r.URL.Query().Get("summary"))
	h.list(w, r, app.Manager, withSummary)
}

func (h *Handlers) listPublic(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, app.Public, true)
}

func (h *Handlers) summary(w http.ResponseWriter, r *http.Request) {
	opts, err := app.ParseListOptions(r.URL.Query(), app.Manager)
	if err != nil {
		writeError(w, r, err)
		return
	}
	months := 6
	if ms := r.URL.Query().Get("months"); ms != "" {
		m, err := strconv.Atoi(ms)
		if err != nil || m < 0 || m > 120 {
			writeProblem(w, http.StatusBadRequest, "Invalid months", "months must be an integer between 0 and 120")
			return
		}
		months = m
	}
	rep, err := h.Q.Report(r.Context(), opts.Filter, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, rep)
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var in app.CreateInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	rv, err := h.A.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

type approvalRequest struct {
	ReviewIDs  []string `json:"reviewIds"`
	Status     string   `json:"status"`
	Approved   *bool    `json:"approved"`
	ApprovedBy string   `json:"approvedBy"`
}

func (req approvalRequest) status() (domain.ApprovalStatus, error) {
	switch {
	case req.Status != "":
		return domain.ApprovalStatus(req.Status), nil
	case req.Approved != nil && *req.Approved:
		return domain.ApprovalApproved, nil
	case req.Approved != nil:
		return domain.ApprovalPending, nil
	}
	return "", domain.NewValidationError("status", "status or approved is required")
}

func (h *Handlers) setApproval(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := req.status()
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.A.SetApproval(r.Context(), req.ReviewIDs, status, req.ApprovedBy)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no review matched the given ids")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.A.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type syncResponse struct {
	Results  []app.SyncResult `json:"results"`
	Failures []string         `json:"failures,omitempty"`
}

func (h *Handlers) sync(w http.ResponseWriter, r *http.Request) {
	if src := r.URL.Query().Get("source"); src != "" {
		res, err := h.I.Ingest(r.Context(), domain.SourceID(src))
		if errors.Is(err, app.ErrUnknownSource) {
			writeError(w, r, err)
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("source", src).Msg("sync failed")
			writeProblem(w, http.StatusBadGateway, "Source Unavailable", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, syncResponse{Results: []app.SyncResult{res}})
		return
	}

	results, err := h.I.IngestAll(r.Context())
	out := syncResponse{Results: results}
	if err != nil {
		out.Failures = []string{err.Error()}
	}
	writeJSON(w, http.StatusOK, out)
}

// pushReviews accepts a JSON array of raw records or {"reviews": [...]}.
func (h *Handlers) pushReviews(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		writeError(w, r, err)
		return
	}
	records, err := rawRecords(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.I.IngestRaw(r.Context(), domain.SourceID(chi.URLParam(r, "source")), records)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func rawRecords(raw json.RawMessage) ([]map[string]any, error) {
	var arr []map[string]any
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}
	var wrapped struct {
		Reviews []map[string]any `json:"reviews"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Reviews == nil {
		return nil, domain.NewValidationError("body", `expected an array of reviews or {"reviews": [...]}`)
	}
	return wrapped.Reviews, nil
}
