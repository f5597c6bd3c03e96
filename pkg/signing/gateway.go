// Package signing wraps the e-signature provider's JWT consent flow, envelope
// creation and embedded recipient view behind a narrow interface.
package signing

import (
	"context"
	"errors"
)

// ErrConsentRequired is returned by RequestAccessGrant when the impersonated
// identity has not yet authorized this client. Callers resolve it through the
// interactive consent URL; it is an expected outcome, not a hard failure.
var ErrConsentRequired = errors.New("signing provider consent required")

// AccessGrant is a short-lived access token for the provider's REST API.
type AccessGrant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// EnvelopeParams describes one document with one signer. DocumentBytes are
// the raw stored file bytes; the adapter base64-encodes them on the wire.
type EnvelopeParams struct {
	DocumentName  string
	DocumentBytes []byte
	SignerEmail   string
	SignerName    string
	ClientUserID  string // correlation id for the embedded signing session
	EmailSubject  string
}

// Envelope is a created signing envelope.
type Envelope struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

// RecipientViewParams requests an embedded signing URL for one signer.
type RecipientViewParams struct {
	SignerEmail  string
	SignerName   string
	ClientUserID string
	ReturnURL    string
}

// RecipientView carries the embedded signing redirect URL.
type RecipientView struct {
	URL string `json:"url"`
}

// Gateway is the e-signature-provider interface consumed by the orchestrator.
type Gateway interface {
	// RequestAccessGrant exchanges the service credential for a short-lived
	// access grant scoped to signature+impersonation. Returns a wrapped
	// ErrConsentRequired when the provider reports consent_required.
	RequestAccessGrant(ctx context.Context) (*AccessGrant, error)
	// CreateEnvelope submits one document with one anchored signature tab for
	// delivery.
	CreateEnvelope(ctx context.Context, token string, params EnvelopeParams) (*Envelope, error)
	// CreateRecipientView generates the embedded signing URL for the envelope's
	// signer.
	CreateRecipientView(ctx context.Context, token, envelopeID string, params RecipientViewParams) (*RecipientView, error)
	// ConsentURL is the interactive authorization URL a caller must visit to
	// resolve ErrConsentRequired.
	ConsentURL() string
}
