package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkuzmin/askdoc/internal/core/domain"
	"github.com/mkuzmin/askdoc/internal/core/ports"
	"github.com/mkuzmin/askdoc/internal/observability/metrics"
)

type Router struct {
	queryUC  ports.QueryService
	ingestUC ports.DocumentIngestor
	reader   ports.DocumentReader
	metrics  *metrics.HTTPServerMetrics
	limiter  *rate.Limiter
}

func NewRouter(
	queryUC ports.QueryService,
	ingestUC ports.DocumentIngestor,
	reader ports.DocumentReader,
	m *metrics.HTTPServerMetrics,
	limiter *rate.Limiter,
) *Router {
	return &Router{
		queryUC:  queryUC,
		ingestUC: ingestUC,
		reader:   reader,
		metrics:  m,
		limiter:  limiter,
	}
}

func (rt *Router) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/query/stream", rt.queryStream)

	validate, err := newOpenAPIValidator()
	if err != nil {
		return nil, err
	}

	var handler http.Handler = validate(mux)
	handler = metricsMiddleware(rt.metrics, handler)
	handler = rateLimitMiddleware(rt.limiter, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler, nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Question string `json:"question"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	started := time.Now()
	result, err := rt.queryUC.Answer(r.Context(), req.Question)
	if rt.metrics != nil {
		rt.metrics.ObserveQuery("batch", result, err, time.Since(started))
	}
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) queryStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	started := time.Now()
	var result *domain.AnswerResult
	streamErr := rt.queryUC.AnswerStream(r.Context(), req.Question, func(event domain.StreamEvent) error {
		if event.Type == domain.StreamComplete {
			result = event.Result
		}
		if rt.metrics != nil {
			rt.metrics.ObserveStreamEvent(event.Type)
		}
		return sse.WriteEvent(event)
	})
	if rt.metrics != nil {
		rt.metrics.ObserveQuery("stream", result, streamErr, time.Since(started))
	}
	if streamErr != nil {
		// The terminal error event already went out if the stream was
		// open; otherwise answer with a plain error status.
		if !sse.Started() {
			writeJSON(w, mapErrorToHTTPStatus(streamErr), map[string]string{"error": streamErr.Error()})
			return
		}
		slog.Warn("query_stream_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", streamErr,
		)
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestUC.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
