package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/contractdesk/backend/internal/repository"
	"github.com/contractdesk/backend/pkg/billing"
	"github.com/contractdesk/backend/pkg/notify"
	"github.com/contractdesk/backend/pkg/signing"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ContractService orchestrates the contract lifecycle across the document
// store, the billing gateway and the signing gateway. Each stage persists its
// result before the next stage runs, so a failure leaves the contract at its
// last durably-recorded stage, recoverable by retrying the failed stage rather
// than by restarting the whole flow. No stage is ever rolled back: the external
// provider already holds remote state that a local rollback cannot undo.
type ContractService struct {
	contracts  ContractStore
	users      UserStore
	files      FileStore
	billing    billing.Gateway
	signing    signing.Gateway
	dispatcher notify.Dispatcher
	returnURL  string
	validate   *validator.Validate
}

// NewContractService creates the lifecycle orchestrator. All collaborators
// are constructed once at process start and injected; the service never
// builds provider clients per call.
func NewContractService(
	contracts ContractStore,
	users UserStore,
	files FileStore,
	billingGW billing.Gateway,
	signingGW signing.Gateway,
	dispatcher notify.Dispatcher,
	returnURL string,
) *ContractService {
	return &ContractService{
		contracts:  contracts,
		users:      users,
		files:      files,
		billing:    billingGW,
		signing:    signingGW,
		dispatcher: dispatcher,
		returnURL:  returnURL,
		validate:   validator.New(),
	}
}

// CreateContract drives the full creation sequence: persist the contract
// locally, create the billing product and price, then open a signing session.
// The local insert is the recovery anchor and must succeed before any
// external-provider call. A consent_required response from the signing
// provider is a first-class outcome carried on the result, not an error.
func (s *ContractService) CreateContract(ctx context.Context, req *domain.CreateContractRequest, fileName, contentType string, fileBytes []byte) (*domain.CreateContractResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if len(fileBytes) == 0 {
		return nil, domain.ErrValidation("contract file is required")
	}

	billed := domain.RequiresBilling(req.Type)
	if billed && req.Terms == nil {
		return nil, domain.ErrValidation("billing terms are required for document type " + req.Type)
	}
	if req.Terms != nil {
		if err := s.validate.Struct(req.Terms); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
	}

	// Stage 1: local persistence. File first, then the contract row.
	file, err := s.files.Upload(ctx, fileName, contentType, fileBytes)
	if err != nil {
		return nil, domain.ErrStorage("failed to store contract file", err)
	}

	status := domain.StatusAwaitingSignature
	if !billed {
		status = domain.StatusActive
	}

	now := time.Now()
	contract := &domain.Contract{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Type:      req.Type,
		File:      *file,
		Terms:     req.Terms,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, domain.ErrStorage("failed to persist contract", err)
	}

	if !billed {
		return &domain.CreateContractResult{Contract: contract}, nil
	}

	// Stage 2: billing. Product, then price, then default price; the
	// provider reference is persisted as soon as each sub-step succeeds.
	if err := s.runBillingStage(ctx, contract); err != nil {
		return nil, err
	}

	// Stage 3: signing. User lookup comes first; a missing owner is an
	// inconsistency, and the contract stays retryable in AWAITING_SIGNATURE.
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, domain.ErrInternal("failed to look up contract owner", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("contract owner " + req.UserID + " does not exist (contract " + contract.ID + " persisted)")
	}

	consentURL, err := s.runSigningStage(ctx, contract, user)
	if err != nil {
		return nil, err
	}
	if consentURL != "" {
		return &domain.CreateContractResult{
			Contract:        contract,
			ConsentRequired: true,
			ConsentURL:      consentURL,
		}, nil
	}

	s.notifyAsync(user.Email, "contract-ready-to-sign", map[string]string{
		"contractId": contract.ID,
		"document":   contract.File.OriginalName,
	})

	return &domain.CreateContractResult{Contract: contract}, nil
}

// runBillingStage creates the product and price for the contract's terms and
// persists each reference as soon as the provider returns it. On failure the
// contract keeps every reference recorded so far.
func (s *ContractService) runBillingStage(ctx context.Context, contract *domain.Contract) error {
	product, err := s.billing.CreateProduct(ctx, contract.File.OriginalName, map[string]string{
		"contractId": contract.ID,
	})
	if err != nil {
		return domain.ErrBilling("failed to create billing product for contract "+contract.ID, err)
	}
	if err := s.contracts.SetProduct(ctx, contract.ID, product.ID); err != nil {
		return domain.ErrStorage("failed to record product on contract "+contract.ID, err)
	}
	contract.ProductID = &product.ID

	price, err := s.billing.CreatePrice(ctx, billing.PriceParams{
		Product:       product.ID,
		UnitAmount:    contract.Terms.PriceMinorUnits,
		Currency:      "usd",
		Interval:      contract.Terms.Interval,
		IntervalCount: contract.Terms.IntervalCount,
	})
	if err != nil {
		return domain.ErrBilling("failed to create billing price for contract "+contract.ID, err)
	}

	if err := s.billing.SetDefaultPrice(ctx, product.ID, price.ID); err != nil {
		return domain.ErrBilling("failed to set default price for contract "+contract.ID, err)
	}

	if err := s.contracts.SetPrice(ctx, contract.ID, price.ID); err != nil {
		return domain.ErrStorage("failed to record price on contract "+contract.ID, err)
	}
	contract.PriceID = &price.ID
	return nil
}

// runSigningStage obtains an access grant, submits the envelope, and persists
// the embedded signing URL. A non-empty consent URL return means the provider
// requires interactive consent before the grant can succeed.
func (s *ContractService) runSigningStage(ctx context.Context, contract *domain.Contract, user *domain.User) (string, error) {
	grant, err := s.signing.RequestAccessGrant(ctx)
	if err != nil {
		if errors.Is(err, signing.ErrConsentRequired) {
			return s.signing.ConsentURL(), nil
		}
		return "", domain.ErrSigning("failed to obtain signing access grant for contract "+contract.ID, err)
	}

	docBytes, err := s.files.Get(ctx, contract.File.ObjectName)
	if err != nil {
		return "", domain.ErrStorage("failed to read stored document for contract "+contract.ID, err)
	}

	envelope, err := s.signing.CreateEnvelope(ctx, grant.AccessToken, signing.EnvelopeParams{
		DocumentName:  contract.File.OriginalName,
		DocumentBytes: docBytes,
		SignerEmail:   user.Email,
		SignerName:    user.DisplayName(),
		ClientUserID:  user.ID,
	})
	if err != nil {
		return "", domain.ErrSigning("failed to create signing envelope for contract "+contract.ID, err)
	}

	view, err := s.signing.CreateRecipientView(ctx, grant.AccessToken, envelope.EnvelopeID, signing.RecipientViewParams{
		SignerEmail:  user.Email,
		SignerName:   user.DisplayName(),
		ClientUserID: user.ID,
		ReturnURL:    s.signingReturnURL(contract.ID),
	})
	if err != nil {
		return "", domain.ErrSigning("failed to create recipient view for contract "+contract.ID, err)
	}

	if err := s.contracts.SetSigningURL(ctx, contract.ID, view.URL); err != nil {
		return "", domain.ErrStorage("failed to record signing URL on contract "+contract.ID, err)
	}
	contract.SigningURL = &view.URL
	return "", nil
}

// signingReturnURL carries the contract id back through the embedded signing
// redirect so the caller can correlate the session.
func (s *ContractService) signingReturnURL(contractID string) string {
	sep := "?"
	if strings.Contains(s.returnURL, "?") {
		sep = "&"
	}
	return s.returnURL + sep + "state=" + url.QueryEscape(contractID)
}

// CreateSigningURL reruns only the signing stage for an existing contract.
// This is the retry path after a consent grant, a missing owner, or a signing
// failure during creation.
func (s *ContractService) CreateSigningURL(ctx context.Context, contractID string) (*domain.CreateContractResult, error) {
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find contract", err)
	}
	if contract == nil {
		return nil, domain.ErrNotFound("contract not found")
	}
	if contract.Status != domain.StatusAwaitingSignature {
		return nil, domain.ErrBadRequest("contract " + contractID + " is not awaiting signature")
	}

	user, err := s.users.FindByID(ctx, contract.UserID)
	if err != nil {
		return nil, domain.ErrInternal("failed to look up contract owner", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("contract owner " + contract.UserID + " does not exist")
	}

	consentURL, err := s.runSigningStage(ctx, contract, user)
	if err != nil {
		return nil, err
	}
	if consentURL != "" {
		return &domain.CreateContractResult{
			Contract:        contract,
			ConsentRequired: true,
			ConsentURL:      consentURL,
		}, nil
	}
	return &domain.CreateContractResult{Contract: contract}, nil
}

// MarkSigned advances the contract to SIGNED. Idempotent: marking an
// already-signed contract is a no-op success.
func (s *ContractService) MarkSigned(ctx context.Context, contractID string) (*domain.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find contract", err)
	}
	if contract == nil {
		return nil, domain.ErrNotFound("contract not found")
	}

	if contract.Status == domain.StatusSigned {
		return contract, nil
	}
	if !domain.CanTransition(contract.Status, domain.StatusSigned) {
		return nil, domain.ErrBadRequest(fmt.Sprintf("contract %s cannot move from %s to %s",
			contractID, contract.Status, domain.StatusSigned))
	}

	if err := s.contracts.UpdateStatus(ctx, contractID, domain.StatusSigned); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound("contract not found")
		}
		return nil, domain.ErrStorage("failed to update contract status", err)
	}
	contract.Status = domain.StatusSigned
	return contract, nil
}

// UpdateStatus is the administrative status override. It bypasses the
// forward-only transition rules but still rejects unknown statuses.
func (s *ContractService) UpdateStatus(ctx context.Context, contractID string, status domain.ContractStatus) error {
	if !status.Valid() {
		return domain.ErrValidation("unknown contract status " + string(status))
	}

	if err := s.contracts.UpdateStatus(ctx, contractID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound("contract not found")
		}
		return domain.ErrStorage("failed to update contract status", err)
	}
	return nil
}

// GetContract returns a contract by id.
func (s *ContractService) GetContract(ctx context.Context, contractID string) (*domain.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find contract", err)
	}
	if contract == nil {
		return nil, domain.ErrNotFound("contract not found")
	}
	return contract, nil
}

// ListContracts returns all contracts enriched with owner snapshots. An
// enrichment failure on one item never fails the listing.
func (s *ContractService) ListContracts(ctx context.Context) (*domain.ContractListing, error) {
	contracts, err := s.contracts.ListAll(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list contracts", err)
	}
	return s.enrich(ctx, contracts, false), nil
}

// ListContractsForUser returns contracts whose owner id matches the given
// case-insensitive substring pattern, excluding administrative accounts, with
// the cached billing product attached where available.
func (s *ContractService) ListContractsForUser(ctx context.Context, idPattern string) (*domain.ContractListing, error) {
	if idPattern == "" {
		return nil, domain.ErrValidation("user id pattern is required")
	}

	contracts, err := s.contracts.ListByUserPattern(ctx, idPattern)
	if err != nil {
		return nil, domain.ErrInternal("failed to list contracts", err)
	}
	return s.enrich(ctx, contracts, true), nil
}

// enrich attaches owner snapshots and (optionally) billing product summaries.
// Per-item failures are annotated on the item and aggregated as warnings; the
// rest of the listing is unaffected.
func (s *ContractService) enrich(ctx context.Context, contracts []*domain.Contract, withProducts bool) *domain.ContractListing {
	listing := &domain.ContractListing{Contracts: make([]domain.ContractListItem, 0, len(contracts))}

	for _, contract := range contracts {
		item := domain.ContractListItem{Contract: contract}

		owner, err := s.users.FindByID(ctx, contract.UserID)
		if err != nil {
			item.EnrichmentError = "owner lookup failed"
			listing.Warnings = append(listing.Warnings,
				fmt.Sprintf("contract %s: owner lookup failed: %v", contract.ID, err))
		} else if owner != nil {
			item.Owner = &domain.UserSnapshot{
				ID:    owner.ID,
				Name:  owner.DisplayName(),
				Email: owner.Email,
			}
		}

		if withProducts && contract.ProductID != nil {
			product, err := s.billing.GetProduct(ctx, *contract.ProductID)
			if err != nil {
				item.EnrichmentError = "product lookup failed"
				listing.Warnings = append(listing.Warnings,
					fmt.Sprintf("contract %s: product lookup failed: %v", contract.ID, err))
			} else {
				item.Product = &domain.ProductSummary{
					ID:           product.ID,
					Name:         product.Name,
					DefaultPrice: product.DefaultPrice,
					Metadata:     product.Metadata,
				}
			}
		}

		listing.Contracts = append(listing.Contracts, item)
	}
	return listing
}

func (s *ContractService) notifyAsync(recipient, template string, tmplCtx map[string]string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.dispatcher.Send(ctx, notify.Message{
			Recipient: recipient,
			Template:  template,
			Context:   tmplCtx,
		}); err != nil {
			log.Printf("failed to dispatch %s notification to %s: %v", template, recipient, err)
		}
	}()
}
