package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/contractdesk/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// 20 MB cap on contract document uploads.
const maxUploadBytes = 20 << 20

// ContractHandler handles contract lifecycle endpoints.
type ContractHandler struct {
	contracts *service.ContractService
}

// NewContractHandler creates a new ContractHandler.
func NewContractHandler(contracts *service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// Create handles POST /api/contracts. The body is multipart form data: a
// "file" part with the contract document plus userId, type and, for billed
// document types, price (minor units), interval and intervalCount fields.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		Error(w, domain.ErrBadRequest("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, domain.ErrBadRequest("missing file part"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		Error(w, domain.ErrBadRequest("failed to read file"))
		return
	}
	if len(data) > maxUploadBytes {
		Error(w, domain.ErrBadRequest("file exceeds 20 MB limit"))
		return
	}

	req := domain.CreateContractRequest{
		UserID: r.FormValue("userId"),
		Type:   r.FormValue("type"),
	}
	if terms, err := parseBillingTerms(r); err != nil {
		Error(w, err)
		return
	} else {
		req.Terms = terms
	}

	result, err := h.contracts.CreateContract(r.Context(), &req,
		header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		Error(w, err)
		return
	}

	if result.ConsentRequired {
		JSON(w, http.StatusOK, map[string]interface{}{
			"consentRequired": true,
			"consentUrl":      result.ConsentURL,
			"contractId":      result.Contract.ID,
		})
		return
	}
	JSON(w, http.StatusCreated, result)
}

// parseBillingTerms reads the optional price/interval/intervalCount form
// fields. All-absent means no terms; a present price must parse as an integer
// amount of minor units.
func parseBillingTerms(r *http.Request) (*domain.BillingTerms, error) {
	priceStr := r.FormValue("price")
	interval := r.FormValue("interval")
	countStr := r.FormValue("intervalCount")
	if priceStr == "" && interval == "" && countStr == "" {
		return nil, nil
	}

	price, err := strconv.ParseInt(priceStr, 10, 64)
	if err != nil {
		return nil, domain.ErrValidation("price must be an integer amount in minor units")
	}
	count := int64(1)
	if countStr != "" {
		count, err = strconv.ParseInt(countStr, 10, 64)
		if err != nil {
			return nil, domain.ErrValidation("intervalCount must be an integer")
		}
	}
	return &domain.BillingTerms{
		PriceMinorUnits: price,
		Interval:        interval,
		IntervalCount:   count,
	}, nil
}

// Get handles GET /api/contracts/{id}.
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	contract, err := h.contracts.GetContract(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, contract)
}

// List handles GET /api/contracts.
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	listing, err := h.contracts.ListContracts(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, listing)
}

// ListForUser handles GET /api/contracts/user/{pattern}: contracts whose
// owning user id contains the pattern, admin owners excluded.
func (h *ContractHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	listing, err := h.contracts.ListContractsForUser(r.Context(), chi.URLParam(r, "pattern"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, listing)
}

// CreateSigningURL handles POST /api/contracts/{id}/signing-url. It reruns
// the signing stage for a contract stuck awaiting signature, for example
// after the consent grant has been approved.
func (h *ContractHandler) CreateSigningURL(w http.ResponseWriter, r *http.Request) {
	result, err := h.contracts.CreateSigningURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}

	if result.ConsentRequired {
		JSON(w, http.StatusOK, map[string]interface{}{
			"consentRequired": true,
			"consentUrl":      result.ConsentURL,
			"contractId":      result.Contract.ID,
		})
		return
	}
	JSON(w, http.StatusOK, result)
}

// UpdateStatus handles PATCH /api/contracts/{id}/status (admin override).
func (h *ContractHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateContractStatusRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	if err := h.contracts.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
