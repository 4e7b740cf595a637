package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"passgate/internal/passgate/service"
	"passgate/internal/passgate/store"
	"passgate/internal/passgate/types"
)

// maxRequestBody caps request bodies.  The largest device payload (QR
// content plus device identity) encodes to well under 1 KiB, so 4 KiB is
// generous.
const maxRequestBody = 4096

type Dependencies struct {
	Logger            *log.Logger
	Addr              string
	ValidationService *service.ValidationService
	CredentialService *service.CredentialService
}

type Server struct {
	httpServer        *http.Server
	logger            *log.Logger
	mux               *http.ServeMux
	validationService *service.ValidationService
	credentialService *service.CredentialService
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:            d.Logger,
		mux:               mux,
		validationService: d.ValidationService,
		credentialService: d.CredentialService,
	}

	// Device-facing validation endpoints, one per submitted-code shape.
	mux.HandleFunc("POST /v1/validate/code", s.handleValidateCode)
	mux.HandleFunc("POST /v1/validate/qr", s.handleValidateQR)
	mux.HandleFunc("POST /v1/validate/rolling", s.handleValidateRolling)

	// Admin collaborator surface.
	mux.HandleFunc("POST /v1/credentials", s.handleCreateCredential)
	mux.HandleFunc("POST /v1/credentials/{id}/revoke", s.handleRevokeCredential)
	mux.HandleFunc("POST /v1/credentials/{id}/qr", s.handleMintQR)
	mux.HandleFunc("GET /v1/attempts", s.handleListAttempts)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Validation handlers ──────────────────────────────────────────────────────

func (s *Server) handleValidateCode(w http.ResponseWriter, r *http.Request) {
	var req types.CodeValidationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeVerdict(w, r, func() (types.ValidationResponse, error) {
		return s.validationService.ValidateCode(r.Context(), req)
	})
}

func (s *Server) handleValidateQR(w http.ResponseWriter, r *http.Request) {
	var req types.QRValidationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeVerdict(w, r, func() (types.ValidationResponse, error) {
		return s.validationService.ValidateQR(r.Context(), req)
	})
}

func (s *Server) handleValidateRolling(w http.ResponseWriter, r *http.Request) {
	var req types.RollingValidationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeVerdict(w, r, func() (types.ValidationResponse, error) {
		return s.validationService.ValidateRolling(r.Context(), req)
	})
}

// writeVerdict runs a validation operation and maps its outcome to HTTP.
// Denials are ordinary 200 responses: a wrong or expired code is an
// expected, frequent outcome for a device, not a server failure.
func (s *Server) writeVerdict(w http.ResponseWriter, r *http.Request, op func() (types.ValidationResponse, error)) {
	resp, err := op()
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingDeviceID):
			writeError(w, http.StatusBadRequest, "missing_device_id", err.Error())
		case errors.Is(err, service.ErrInvalidDirection):
			writeError(w, http.StatusBadRequest, "invalid_direction", err.Error())
		case errors.Is(err, service.ErrMissingCode):
			writeError(w, http.StatusBadRequest, "missing_code", err.Error())
		case errors.Is(err, store.ErrTimeout):
			// Infrastructure fault, never a validity verdict.
			writeError(w, http.StatusServiceUnavailable, "persistence_timeout", "validation temporarily unavailable")
		default:
			s.logger.Printf("%s error: %v", r.URL.Path, err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	status := http.StatusOK
	if resp.Reason == types.ReasonRateLimited {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, resp)
}

// ── Admin handlers ───────────────────────────────────────────────────────────

func (s *Server) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCredentialRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	created, err := s.credentialService.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingUserID),
			errors.Is(err, service.ErrInvalidKind),
			errors.Is(err, service.ErrInvalidUsageLimit):
			writeError(w, http.StatusBadRequest, "invalid_credential", err.Error())
		case errors.Is(err, store.ErrTimeout):
			writeError(w, http.StatusServiceUnavailable, "persistence_timeout", "store temporarily unavailable")
		default:
			s.logger.Printf("create credential error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, credentialToResponse(created))
}

func (s *Server) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.credentialService.Revoke(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "credential not found")
		case errors.Is(err, store.ErrAlreadyRevoked):
			writeError(w, http.StatusConflict, "already_revoked", "credential already revoked")
		case errors.Is(err, store.ErrTimeout):
			writeError(w, http.StatusServiceUnavailable, "persistence_timeout", "store temporarily unavailable")
		default:
			s.logger.Printf("revoke credential error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "state": types.CredentialStateRevoked})
}

func (s *Server) handleMintQR(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req types.MintQRRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	content, err := s.credentialService.MintQR(r.Context(), id, req.ValidMinutes)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "credential not found")
		case errors.Is(err, service.ErrCredentialInactive):
			writeError(w, http.StatusConflict, "credential_inactive", err.Error())
		case errors.Is(err, store.ErrTimeout):
			writeError(w, http.StatusServiceUnavailable, "persistence_timeout", "store temporarily unavailable")
		default:
			s.logger.Printf("mint qr error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"qr_content": content})
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	attempts, err := s.credentialService.ListAttempts(r.Context(), deviceID, limit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingDeviceID):
			writeError(w, http.StatusBadRequest, "missing_device_id", err.Error())
		case errors.Is(err, store.ErrTimeout):
			writeError(w, http.StatusServiceUnavailable, "persistence_timeout", "store temporarily unavailable")
		default:
			s.logger.Printf("list attempts error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, attemptsToResponse(attempts))
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "credential id must be a positive integer")
		return 0, false
	}
	return id, true
}
