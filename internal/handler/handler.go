package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ussd-gateway/internal/models"
	"ussd-gateway/internal/registry"
	"ussd-gateway/internal/service"
	"ussd-gateway/internal/validation"
)

// Handler provides HTTP handlers for the gateway API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB; USSD payloads are a few hundred bytes
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// ProcessUSSD handles POST /ussd, the gateway's core operation.
func (h *Handler) ProcessUSSD(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.USSDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.PhoneNumber = validation.SanitizeString(req.PhoneNumber)
	req.SessionID = validation.SanitizeString(req.SessionID)
	req.USSDCode = validation.SanitizeString(req.USSDCode)
	req.IMEI = validation.SanitizeString(req.IMEI)

	resp, err := h.service.Process(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// ListPhoneNumbers handles GET /phone-numbers.
func (h *Handler) ListPhoneNumbers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListPhoneNumbers(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to read phone numbers")
		return
	}

	h.respondJSON(w, http.StatusOK, models.PhoneNumbersResponse{
		Success:      true,
		PhoneNumbers: entries,
	})
}

// AddPhoneNumber handles POST /phone-numbers.
func (h *Handler) AddPhoneNumber(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.AddPhoneNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.PhoneNumber = validation.SanitizeString(req.PhoneNumber)
	req.Label = validation.SanitizeString(req.Label)

	entry, err := h.service.AddPhoneNumber(r.Context(), req.PhoneNumber, req.Label)
	if err != nil {
		if errors.Is(err, registry.ErrAlreadyExists) {
			h.respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, models.AddPhoneNumberResponse{
		Success:     true,
		PhoneNumber: entry,
		Message:     "Phone number added successfully",
	})
}

// DeletePhoneNumber handles DELETE /phone-numbers?phoneNumber=...
func (h *Handler) DeletePhoneNumber(w http.ResponseWriter, r *http.Request) {
	phoneNumber := validation.SanitizeString(r.URL.Query().Get("phoneNumber"))
	if phoneNumber == "" {
		h.respondError(w, http.StatusBadRequest, "phone number parameter is required")
		return
	}

	if err := h.service.DeletePhoneNumber(r.Context(), phoneNumber); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Phone number removed successfully",
	})
}

// GetTunables handles GET /config.
func (h *Handler) GetTunables(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Tunables())
}

// UpdateTunables handles POST /config (partial merge).
func (h *Handler) UpdateTunables(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var update models.TunablesUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	tunables := h.service.MergeTunables(r.Context(), update)
	h.respondJSON(w, http.StatusOK, models.TunablesResponse{
		Success: true,
		Config:  tunables,
	})
}

// ReplaceTunables handles PUT /config (section replacement).
func (h *Handler) ReplaceTunables(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var update models.TunablesUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	tunables := h.service.ReplaceTunables(r.Context(), update)
	h.respondJSON(w, http.StatusOK, models.TunablesResponse{
		Success: true,
		Config:  tunables,
	})
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
