package signing

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	requestTimeout = 30 * time.Second
	grantLifetime  = 10 * time.Minute
	grantScopes    = "signature impersonation"
)

// Error is a provider-reported signing failure.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("signing provider error (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("signing provider error (%d): %s", e.Status, e.Message)
}

// Config holds the credentials for the JWT grant flow. The RSA key is parsed
// once at construction; rotating it requires building a new client.
type Config struct {
	BaseURL            string
	OAuthBaseURL       string
	IntegrationKey     string
	ImpersonatedUserID string
	AccountID          string
	PrivateKeyPEM      string
	ReturnURL          string
}

// Client implements Gateway against a DocuSign-compatible REST API.
type Client struct {
	cfg        Config
	privateKey *rsa.PrivateKey
	httpClient *http.Client
}

// NewClient parses the configured RSA key and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing private key: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.OAuthBaseURL = strings.TrimRight(cfg.OAuthBaseURL, "/")

	return &Client{
		cfg:        cfg,
		privateKey: key,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

// oauthHost is the bare host used as the JWT audience.
func (c *Client) oauthHost() string {
	u, err := url.Parse(c.cfg.OAuthBaseURL)
	if err != nil || u.Host == "" {
		return c.cfg.OAuthBaseURL
	}
	return u.Host
}

// assertion builds the RS256 impersonation JWT for the grant exchange.
func (c *Client) assertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   c.cfg.IntegrationKey,
		"sub":   c.cfg.ImpersonatedUserID,
		"aud":   c.oauthHost(),
		"iat":   now.Unix(),
		"exp":   now.Add(grantLifetime).Unix(),
		"scope": grantScopes,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(c.privateKey)
}

// RequestAccessGrant exchanges the signed assertion for an access token.
// A consent_required error body maps to ErrConsentRequired.
func (c *Client) RequestAccessGrant(ctx context.Context) (*AccessGrant, error) {
	assertion, err := c.assertion(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to sign grant assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.OAuthBaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build grant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grant request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read grant response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.Unmarshal(data, &errBody)
		if errBody.Error == "consent_required" {
			return nil, fmt.Errorf("%w: %s", ErrConsentRequired, errBody.ErrorDescription)
		}
		return nil, &Error{Status: resp.StatusCode, Code: errBody.Error, Message: errBody.ErrorDescription}
	}

	var grant AccessGrant
	if err := json.Unmarshal(data, &grant); err != nil {
		return nil, fmt.Errorf("failed to decode grant response: %w", err)
	}
	return &grant, nil
}

// ConsentURL builds the interactive authorization URL from the configured
// OAuth server, scopes, client id and redirect target.
func (c *Client) ConsentURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("scope", grantScopes)
	q.Set("client_id", c.cfg.IntegrationKey)
	q.Set("redirect_uri", c.cfg.ReturnURL)
	return c.cfg.OAuthBaseURL + "/oauth/auth?" + q.Encode()
}

// envelopeDefinition is the wire shape for envelope creation: one document,
// one signer, one anchored SignHere tab, submitted for delivery.
type envelopeDefinition struct {
	EmailSubject string `json:"emailSubject"`
	Status       string `json:"status"`
	Documents    []struct {
		DocumentBase64 string `json:"documentBase64"`
		Name           string `json:"name"`
		FileExtension  string `json:"fileExtension"`
		DocumentID     string `json:"documentId"`
	} `json:"documents"`
	Recipients struct {
		Signers []signerDefinition `json:"signers"`
	} `json:"recipients"`
}

type signerDefinition struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	ClientUserID string `json:"clientUserId"`
	Tabs         struct {
		SignHereTabs []signHereTab `json:"signHereTabs"`
	} `json:"tabs"`
}

type signHereTab struct {
	AnchorString  string `json:"anchorString"`
	AnchorUnits   string `json:"anchorUnits"`
	AnchorXOffset string `json:"anchorXOffset"`
	AnchorYOffset string `json:"anchorYOffset"`
}

// CreateEnvelope submits the document for signature.
func (c *Client) CreateEnvelope(ctx context.Context, token string, params EnvelopeParams) (*Envelope, error) {
	ext := "pdf"
	if i := strings.LastIndex(params.DocumentName, "."); i >= 0 && i < len(params.DocumentName)-1 {
		ext = params.DocumentName[i+1:]
	}

	subject := params.EmailSubject
	if subject == "" {
		subject = "Please sign: " + params.DocumentName
	}

	def := envelopeDefinition{
		EmailSubject: subject,
		Status:       "sent",
	}
	def.Documents = append(def.Documents, struct {
		DocumentBase64 string `json:"documentBase64"`
		Name           string `json:"name"`
		FileExtension  string `json:"fileExtension"`
		DocumentID     string `json:"documentId"`
	}{
		DocumentBase64: base64.StdEncoding.EncodeToString(params.DocumentBytes),
		Name:           params.DocumentName,
		FileExtension:  ext,
		DocumentID:     "1",
	})

	signer := signerDefinition{
		Email:        params.SignerEmail,
		Name:         params.SignerName,
		RecipientID:  "1",
		ClientUserID: params.ClientUserID,
	}
	signer.Tabs.SignHereTabs = []signHereTab{{
		AnchorString:  "/sign_here/",
		AnchorUnits:   "pixels",
		AnchorXOffset: "10",
		AnchorYOffset: "20",
	}}
	def.Recipients.Signers = []signerDefinition{signer}

	var envelope Envelope
	path := fmt.Sprintf("/v2.1/accounts/%s/envelopes", c.cfg.AccountID)
	if err := c.doJSON(ctx, token, path, def, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// CreateRecipientView requests the embedded signing URL.
func (c *Client) CreateRecipientView(ctx context.Context, token, envelopeID string, params RecipientViewParams) (*RecipientView, error) {
	body := map[string]string{
		"returnUrl":            params.ReturnURL,
		"authenticationMethod": "none",
		"email":                params.SignerEmail,
		"userName":             params.SignerName,
		"clientUserId":         params.ClientUserID,
	}

	var view RecipientView
	path := fmt.Sprintf("/v2.1/accounts/%s/envelopes/%s/views/recipient", c.cfg.AccountID, envelopeID)
	if err := c.doJSON(ctx, token, path, body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// doJSON posts a JSON body to the REST API with the grant token and decodes
// the response into out.
func (c *Client) doJSON(ctx context.Context, token, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode signing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build signing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("signing request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read signing response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errBody struct {
			ErrorCode string `json:"errorCode"`
			Message   string `json:"message"`
		}
		_ = json.Unmarshal(data, &errBody)
		msg := errBody.Message
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &Error{Status: resp.StatusCode, Code: errBody.ErrorCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode signing response: %w", err)
		}
	}
	return nil
}
