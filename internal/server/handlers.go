package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/ledger"
	"github.com/vanshika/beltledger/internal/metadata"
	"github.com/vanshika/beltledger/internal/service"
)

const maxBodyBytes = 1 << 20

// LedgerProxy relays requests to the ledger backend with server-side credentials.
type LedgerProxy interface {
	Forward(ctx context.Context, method, path string, query url.Values, body []byte) (ledger.Response, error)
}

// MetadataStore persists off-chain profile details.
type MetadataStore interface {
	Get(ctx context.Context, id string) (domain.ProfileMetadata, error)
	Upsert(ctx context.Context, md domain.ProfileMetadata) (time.Time, error)
}

// LineageQueries answers promotion lineage questions.
type LineageQueries interface {
	Lineage(ctx context.Context, id string, maxDepth int) ([]domain.LineageStep, error)
	Students(ctx context.Context, id string) ([]domain.LineageStep, error)
	PendingPromotions(ctx context.Context, id string) ([]domain.Promotion, error)
}

// NameLookup resolves display names for profile ids.
type NameLookup interface {
	Name(ctx context.Context, id string) string
}

// APIHandlers exposes HTTP handlers for the REST API. Any dependency may be
// nil, in which case its routes are not registered.
type APIHandlers struct {
	logger   *slog.Logger
	ledger   LedgerProxy
	metadata MetadataStore
	lineage  LineageQueries
	names    NameLookup
}

// APIDependencies collects the collaborators of APIHandlers.
type APIDependencies struct {
	Ledger   LedgerProxy
	Metadata MetadataStore
	Lineage  LineageQueries
	Names    NameLookup
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, deps APIDependencies) *APIHandlers {
	return &APIHandlers{
		logger:   logger,
		ledger:   deps.Ledger,
		metadata: deps.Metadata,
		lineage:  deps.Lineage,
		names:    deps.Names,
	}
}

// register mounts the API routes under api.
func (h *APIHandlers) register(api *mux.Router) {
	if h.ledger != nil {
		api.HandleFunc("/practitioner/{id}", h.proxyProfile("practitioner")).Methods(http.MethodGet)
		api.HandleFunc("/organization/{id}", h.proxyProfile("organization")).Methods(http.MethodGet)
		api.HandleFunc("/build-tx", h.buildTx).Methods(http.MethodPost)
		api.HandleFunc("/submit-tx", h.submitTx).Methods(http.MethodPost)
		for _, path := range []string{
			"/belts", "/belts/count", "/belts/frequency",
			"/promotions", "/promotions/count",
			"/profiles", "/profiles/count",
		} {
			api.HandleFunc(path, h.proxyListing(path)).Methods(http.MethodGet)
		}
	}
	if h.metadata != nil {
		api.HandleFunc("/profile-metadata", h.getMetadata).Methods(http.MethodGet)
		api.HandleFunc("/profile-metadata", h.putMetadata).Methods(http.MethodPut)
	}
	if h.lineage != nil {
		api.HandleFunc("/lineage/{id}", h.getLineage).Methods(http.MethodGet)
		api.HandleFunc("/lineage/{id}/students", h.getStudents).Methods(http.MethodGet)
		api.HandleFunc("/lineage/{id}/pending", h.getPending).Methods(http.MethodGet)
	}
	if h.names != nil {
		api.HandleFunc("/profile-name/{id}", h.getProfileName).Methods(http.MethodGet)
	}
}

func (h *APIHandlers) proxyProfile(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(mux.Vars(r)["id"])
		if id == "" {
			writeError(w, http.StatusBadRequest, "profile id is required")
			return
		}
		h.forward(w, r, "/"+kind+"/"+url.PathEscape(id), nil)
	}
}

func (h *APIHandlers) proxyListing(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.forward(w, r, path, nil)
	}
}

func (h *APIHandlers) buildTx(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}
	h.forward(w, r, "/build-tx", body)
}

func (h *APIHandlers) submitTx(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req ledger.SubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.UnsignedTx == "" || req.Witness == "" {
		writeError(w, http.StatusBadRequest, "tx_unsigned and tx_wit are required")
		return
	}
	h.forward(w, r, "/submit-tx", body)
}

// forward mirrors the backend answer, status included.
func (h *APIHandlers) forward(w http.ResponseWriter, r *http.Request, path string, body []byte) {
	resp, err := h.ledger.Forward(r.Context(), r.Method, path, r.URL.Query(), body)
	if err != nil {
		h.logger.Error("ledger request failed", "error", err, "path", path)
		writeError(w, http.StatusBadGateway, "ledger backend unavailable")
		return
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *APIHandlers) getMetadata(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	md, err := h.metadata.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load profile metadata", "error", err, "profileId", id)
		writeError(w, http.StatusInternalServerError, "failed to load profile metadata")
		return
	}
	respondJSON(w, http.StatusOK, md)
}

func (h *APIHandlers) putMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var md domain.ProfileMetadata
	if err := decodeJSON(r, &md); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON payload: %v", err))
		return
	}
	updated, err := h.metadata.Upsert(r.Context(), md)
	if err != nil {
		if errors.Is(err, metadata.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to save profile metadata", "error", err, "profileId", md.ProfileID)
		writeError(w, http.StatusInternalServerError, "failed to save profile metadata")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"updated_at": formatTime(updated),
	})
}

func (h *APIHandlers) getLineage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	depth := parseInt(r.URL.Query().Get("depth"), 0)
	steps, err := h.lineage.Lineage(r.Context(), id, depth)
	if err != nil {
		h.lineageError(w, err, id)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"profile_id": id, "lineage": steps})
}

func (h *APIHandlers) getStudents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	students, err := h.lineage.Students(r.Context(), id)
	if err != nil {
		h.lineageError(w, err, id)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"profile_id": id, "students": students})
}

func (h *APIHandlers) getPending(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	pending, err := h.lineage.PendingPromotions(r.Context(), id)
	if err != nil {
		h.lineageError(w, err, id)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"profile_id": id, "promotions": pending})
}

func (h *APIHandlers) lineageError(w http.ResponseWriter, err error, id string) {
	if errors.Is(err, service.ErrInvalidProfileID) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("lineage query failed", "error", err, "profileId", id)
	writeError(w, http.StatusInternalServerError, "lineage query failed")
}

func (h *APIHandlers) getProfileName(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	respondJSON(w, http.StatusOK, map[string]string{
		"id":   id,
		"name": h.names.Name(r.Context(), id),
	})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.New("request body is required")
	}
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("request body is required")
	}
	return body, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
