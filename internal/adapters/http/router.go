package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
	"github.com/quaydocs/corpus-assistant/internal/core/ports"
	"github.com/quaydocs/corpus-assistant/internal/core/usecase"
	"github.com/quaydocs/corpus-assistant/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ingest   ports.DocumentIngestor
	ask      ports.QuestionService
	bindings ports.BindingService
	tenants  *usecase.TenantDirectory
	metrics  *metrics.APIMetrics

	rateLimitRPS   float64
	rateLimitBurst int
}

func NewRouter(
	ingest ports.DocumentIngestor,
	ask ports.QuestionService,
	bindings ports.BindingService,
	tenants *usecase.TenantDirectory,
	apiMetrics *metrics.APIMetrics,
	rateLimitRPS float64,
	rateLimitBurst int,
) *Router {
	return &Router{
		ingest:         ingest,
		ask:            ask,
		bindings:       bindings,
		tenants:        tenants,
		metrics:        apiMetrics,
		rateLimitRPS:   rateLimitRPS,
		rateLimitBurst: rateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/ask", rt.askQuestion)
	mux.HandleFunc("/v1/bindings", rt.setBinding)
	mux.HandleFunc("/v1/bindings/", rt.getBinding)
	mux.Handle("/metrics", rt.metrics.Handler())

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadDocument accepts a multipart form with fields "tenant" and "file".
// 202 for a newly indexed document, 409 when the tenant already holds a
// document with that file name.
func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	tenant := r.FormValue("tenant")
	if err := rt.requireTenant(w, tenant); err != nil {
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	receipt, err := rt.ingest.Ingest(r.Context(), tenant, fileHeader.Filename, file)
	if err != nil {
		rt.metrics.RecordIngest(serviceName, tenant, "error", 0)
		writeError(w, err)
		return
	}

	rt.metrics.RecordIngest(serviceName, tenant, string(receipt.Status), receipt.ChunkCount)
	status := http.StatusAccepted
	if receipt.Status == domain.IngestAlreadyExists {
		status = http.StatusConflict
	}
	writeJSON(w, status, receipt)
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req struct {
		Tenant   string `json:"tenant"`
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("question is required"))
		return
	}
	if err := rt.requireTenant(w, req.Tenant); err != nil {
		return
	}

	start := time.Now()
	answer, err := rt.ask.Ask(r.Context(), req.Tenant, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordAsk(serviceName, req.Tenant, len(answer.Sources), time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) setBinding(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req struct {
		ChannelID string `json:"channel_id"`
		Tenant    string `json:"tenant"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if strings.TrimSpace(req.ChannelID) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("channel_id is required"))
		return
	}

	if err := rt.bindings.SetBinding(r.Context(), req.ChannelID, req.Tenant); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"channel_id": req.ChannelID,
		"tenant":     req.Tenant,
	})
}

func (rt *Router) getBinding(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	channelID := strings.TrimPrefix(r.URL.Path, "/v1/bindings/")
	if channelID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("channel id is required"))
		return
	}

	tenant, err := rt.bindings.ResolveBinding(r.Context(), channelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"channel_id": channelID,
		"tenant":     tenant,
	})
}

// requireTenant rejects unrecognized tenant names before the core runs.
func (rt *Router) requireTenant(w http.ResponseWriter, tenant string) error {
	if err := rt.tenants.Require(tenant); err != nil {
		writeError(w, err)
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err.Error()))
}
