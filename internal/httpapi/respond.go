package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"passgate/internal/passgate/store"
	"passgate/internal/passgate/types"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// credentialResponse is the admin-facing view of a credential.  The code
// itself is included — this surface is for the trusted collaborator that
// hands codes to holders.
type credentialResponse struct {
	ID            int64    `json:"id"`
	UserID        int64    `json:"user_id"`
	ApplicationID *int64   `json:"application_id,omitempty"`
	Code          string   `json:"code"`
	Kind          string   `json:"kind"`
	State         string   `json:"state"`
	ExpiresAtMS   *int64   `json:"expires_at_ms,omitempty"`
	UsageLimit    *int     `json:"usage_limit,omitempty"`
	UsageCount    int      `json:"usage_count"`
	Permissions   []string `json:"permissions,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

func credentialToResponse(c types.Credential) credentialResponse {
	resp := credentialResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		ApplicationID: c.ApplicationID,
		Code:          c.Code,
		Kind:          string(c.Kind),
		State:         string(c.State),
		UsageLimit:    c.UsageLimit,
		UsageCount:    c.UsageCount,
		Permissions:   c.Permissions,
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if c.ExpiresAt != nil {
		ms := c.ExpiresAt.UTC().UnixMilli()
		resp.ExpiresAtMS = &ms
	}
	return resp
}

type attemptResponse struct {
	DeviceID     string `json:"device_id"`
	DeviceType   string `json:"device_type,omitempty"`
	Direction    string `json:"direction"`
	Success      bool   `json:"success"`
	Reason       string `json:"reason,omitempty"`
	CredentialID *int64 `json:"credential_id,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}

func attemptsToResponse(recs []store.AccessAttemptRecord) []attemptResponse {
	out := make([]attemptResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, attemptResponse{
			DeviceID:     rec.DeviceID,
			DeviceType:   rec.DeviceType,
			Direction:    string(rec.Direction),
			Success:      rec.Success,
			Reason:       rec.Reason,
			CredentialID: rec.CredentialID,
			OccurredAt:   rec.OccurredAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
