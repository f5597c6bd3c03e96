package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/contractdesk/backend/internal/service"
)

// CallbackHandler receives signing-provider completion callbacks.
type CallbackHandler struct {
	contracts *service.ContractService
	secret    string
}

// NewCallbackHandler creates a new CallbackHandler. The secret authenticates
// callback payloads via an HMAC-SHA256 signature header.
func NewCallbackHandler(contracts *service.ContractService, secret string) *CallbackHandler {
	return &CallbackHandler{contracts: contracts, secret: secret}
}

// HandleSigning handles POST /api/callbacks/signing. The provider reports
// envelope completion; a "completed" event marks the contract signed. The
// operation is idempotent so redelivered callbacks are harmless.
func (h *CallbackHandler) HandleSigning(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get("X-Signature-256")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if h.secret != "" {
		if !verifySignature(signature, body, h.secret) {
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var payload struct {
		Event      string `json:"event"`
		ContractID string `json:"contractId"`
		EnvelopeID string `json:"envelopeId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if payload.Event != "completed" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ignored non-completion event"))
		return
	}
	if payload.ContractID == "" {
		http.Error(w, "Missing contractId", http.StatusBadRequest)
		return
	}

	contract, err := h.contracts.MarkSigned(r.Context(), payload.ContractID)
	if err != nil {
		Error(w, err)
		return
	}

	log.Printf("[Callback] Contract %s marked signed (envelope %s)", contract.ID, payload.EnvelopeID)
	JSON(w, http.StatusOK, map[string]string{"status": string(contract.Status)})
}

func verifySignature(signature string, payload []byte, secret string) bool {
	parts := strings.Split(signature, "=")
	if len(parts) != 2 || parts[0] != "sha256" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expectedMAC := mac.Sum(nil)
	expectedSignature := hex.EncodeToString(expectedMAC)

	return hmac.Equal([]byte(parts[1]), []byte(expectedSignature))
}
