package domain

import (
	"strings"
	"time"
)

// ContractStatus is the lifecycle state of a contract document.
type ContractStatus string

const (
	StatusDraftUpload       ContractStatus = "DRAFT_UPLOAD"
	StatusAwaitingSignature ContractStatus = "AWAITING_SIGNATURE"
	StatusSigned            ContractStatus = "SIGNED"
	StatusPaymentComplete   ContractStatus = "PAYMENT_COMPLETE"
	StatusActive            ContractStatus = "ACTIVE"
	StatusCancelled         ContractStatus = "CANCELLED"
	StatusFailed            ContractStatus = "FAILED"
)

// lifecycleRank orders the billed lifecycle; transitions may only move forward.
var lifecycleRank = map[ContractStatus]int{
	StatusDraftUpload:       0,
	StatusAwaitingSignature: 1,
	StatusSigned:            2,
	StatusPaymentComplete:   3,
}

// Valid reports whether s is a known contract status.
func (s ContractStatus) Valid() bool {
	switch s {
	case StatusDraftUpload, StatusAwaitingSignature, StatusSigned,
		StatusPaymentComplete, StatusActive, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is allowed from s.
func (s ContractStatus) Terminal() bool {
	return s == StatusPaymentComplete || s == StatusCancelled || s == StatusFailed
}

// CanTransition reports whether the lifecycle allows moving from one status to
// another. The billed path is strictly forward (DRAFT_UPLOAD through
// PAYMENT_COMPLETE), FAILED is reachable from any non-terminal state, and
// ACTIVE contracts (no billing) may only be CANCELLED. Administrative status
// overrides bypass this check through UpdateStatus.
func CanTransition(from, to ContractStatus) bool {
	if from == to {
		return false
	}
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusFailed {
		return !from.Terminal()
	}
	if from == StatusActive {
		return to == StatusCancelled
	}
	fromRank, fromOK := lifecycleRank[from]
	toRank, toOK := lifecycleRank[to]
	if fromOK && toOK {
		return toRank == fromRank+1
	}
	return false
}

// noBillingTypes lists document types that carry no billing terms. A contract
// of one of these types is created directly in ACTIVE status.
var noBillingTypes = map[string]bool{
	"NDA":       true,
	"AMENDMENT": true,
}

// RequiresBilling reports whether contracts of the given document type go
// through the billing and signature lifecycle. Document types are matched
// case-insensitively.
func RequiresBilling(docType string) bool {
	return !noBillingTypes[strings.ToUpper(docType)]
}

// ContractFile is the stored-file reference for an uploaded document.
type ContractFile struct {
	ObjectName   string `json:"objectName"`
	Path         string `json:"path"`
	OriginalName string `json:"originalName"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
}

// BillingTerms are the recurring billing parameters supplied at creation.
// PriceMinorUnits is always in the currency's minor units (cents); the
// orchestrator never converts it.
type BillingTerms struct {
	PriceMinorUnits int64  `json:"priceMinorUnits" validate:"required,gt=0"`
	Interval        string `json:"interval" validate:"required,oneof=day week month year"`
	IntervalCount   int64  `json:"intervalCount" validate:"required,gt=0,lte=12"`
}

// Contract is the central entity: an uploaded document moving through the
// signature and billing lifecycle. Provider references stay nil until the
// corresponding stage succeeds; a later stage never clears them.
type Contract struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	Type       string         `json:"type"`
	File       ContractFile   `json:"file"`
	Terms      *BillingTerms  `json:"terms,omitempty"`
	ProductID  *string        `json:"productId,omitempty"`
	PriceID    *string        `json:"priceId,omitempty"`
	SigningURL *string        `json:"signingUrl,omitempty"`
	Status     ContractStatus `json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// CreateContractRequest is the validated input for creating a contract.
// Billing terms are required whenever the document type is billed.
type CreateContractRequest struct {
	UserID string        `json:"userId" validate:"required"`
	Type   string        `json:"type" validate:"required,min=2,max=50"`
	Terms  *BillingTerms `json:"terms,omitempty"`
}

// CreateContractResult describes how far contract creation got. When the
// signing provider demands user consent, ConsentRequired is set and ConsentURL
// carries the authorization URL; this is a successful outcome, not an error.
type CreateContractResult struct {
	Contract        *Contract `json:"contract"`
	ConsentRequired bool      `json:"consentRequired,omitempty"`
	ConsentURL      string    `json:"consentUrl,omitempty"`
}

// CompletePaymentRequest is the validated input for completing payment on a
// signed contract.
type CompletePaymentRequest struct {
	ContractID string `json:"contractId" validate:"required"`
	CustomerID string `json:"customerId"`
	PriceID    string `json:"priceId" validate:"required"`
}

// UpdateContractStatusRequest is the administrative status override input.
type UpdateContractStatusRequest struct {
	Status ContractStatus `json:"status" validate:"required"`
}

// ContractListItem is a contract enriched with its owner snapshot and, when
// available, the cached billing product. EnrichmentError is set instead of
// Product when the per-item product lookup failed; the listing as a whole
// still succeeds.
type ContractListItem struct {
	Contract        *Contract       `json:"contract"`
	Owner           *UserSnapshot   `json:"owner,omitempty"`
	Product         *ProductSummary `json:"product,omitempty"`
	EnrichmentError string          `json:"enrichmentError,omitempty"`
}

// ProductSummary is the locally relevant slice of a billing-provider product.
type ProductSummary struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	DefaultPrice string            `json:"defaultPrice,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ContractListing is a set of list items plus aggregate enrichment warnings.
type ContractListing struct {
	Contracts []ContractListItem `json:"contracts"`
	Warnings  []string           `json:"warnings,omitempty"`
}
