package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"peiyin/internal/logging"
	"peiyin/internal/queue"
	"peiyin/internal/services"
)

type vocalRemovalRequest struct {
	SourceURL string `json:"source_url"`
}

func (h *Handler) enqueueVocalRemoval(w http.ResponseWriter, r *http.Request) {
	var req vocalRemovalRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status, err := h.service.EnqueueVocalRemoval(r.Context(), req.SourceURL)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	code := http.StatusOK
	if status.Created {
		code = http.StatusAccepted
	}
	h.writeJSON(w, code, status)
}

func (h *Handler) getVocalRemoval(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.VocalRemoval(r.Context(), r.URL.Query().Get("source_url"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) submitDubbing(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("media")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "media file is required")
		return
	}
	defer file.Close()

	duration, err := parseOptionalFloat(r.FormValue("duration"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "duration must be a number")
		return
	}
	form := DubbingForm{
		UserID:    r.FormValue("user_id"),
		SourceURL: r.FormValue("source_url"),
		Mode:      r.FormValue("mode"),
		IsPublic:  parseBool(r.FormValue("is_public")),
		Display: queue.DisplayMetadata{
			CaptionText: r.FormValue("caption_text"),
			Translation: r.FormValue("translation"),
			Thumbnail:   r.FormValue("thumbnail"),
			Duration:    duration,
		},
	}
	created, err := h.service.SubmitDubbing(r.Context(), form, file, header.Filename)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getDubbing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	status, err := h.service.Dubbing(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) listPublicDubbings(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.PublicDubbings(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) listRecommendations(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Recommendations(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) refreshRecommendations(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RefreshRecommendations(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) daemonStatus(w http.ResponseWriter, r *http.Request) {
	payload := DaemonStatus{Dependencies: h.dependencies()}
	if h.status != nil {
		payload.Workflow = h.status.Status(r.Context())
	}
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Health(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if h.status != nil {
		summary := h.status.Status(r.Context())
		resp.Lanes = summary.Lanes
		resp.Ready = resp.Ready && summary.Ready()
	}
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConfiguration):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("request failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_error"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseOptionalFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}
