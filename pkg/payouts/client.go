package payouts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brandcart/brandcart-backend/pkg/config"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
)

var (
	errKeyRequired     = errors.New("payout provider key id and secret are required")
	errAccountRequired = errors.New("payout provider account number is required")
	errLoggerRequired  = errors.New("payout logger is required")
)

// Client drives the bank payout provider: contact and fund account
// registration, payout creation, payout status reads.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	accountNumber string
	webhookSecret string
	logger        *logger.Logger
}

// ContactParams registers a seller as a payable contact.
type ContactParams struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Contact     string `json:"contact,omitempty"`
	Type        string `json:"type"`
	ReferenceID string `json:"reference_id"`
}

// Contact is the provider's contact object.
type Contact struct {
	ID string `json:"id"`
}

// BankAccount carries the beneficiary account details.
type BankAccount struct {
	Name          string `json:"name"`
	IFSC          string `json:"ifsc"`
	AccountNumber string `json:"account_number"`
}

// FundAccountParams links a bank account to a contact.
type FundAccountParams struct {
	ContactID   string      `json:"contact_id"`
	AccountType string      `json:"account_type"`
	BankAccount BankAccount `json:"bank_account"`
}

// FundAccount is the provider's fund account object.
type FundAccount struct {
	ID string `json:"id"`
}

// PayoutParams creates a payout against a fund account. ReferenceID makes the
// call idempotent on the provider side.
type PayoutParams struct {
	AccountNumber     string `json:"account_number"`
	FundAccountID     string `json:"fund_account_id"`
	AmountPaise       int64  `json:"amount"`
	Currency          string `json:"currency"`
	Mode              string `json:"mode"`
	Purpose           string `json:"purpose"`
	ReferenceID       string `json:"reference_id"`
	QueueIfLowBalance bool   `json:"queue_if_low_balance"`
}

// Payout is the provider's payout object.
type Payout struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountPaise int64  `json:"amount"`
	ReferenceID string `json:"reference_id"`
}

// NewClient initializes the payout wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PayoutsConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, errKeyRequired
	}
	if strings.TrimSpace(cfg.AccountNumber) == "" {
		return nil, errAccountRequired
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		keyID:         keyID,
		keySecret:     keySecret,
		accountNumber: strings.TrimSpace(cfg.AccountNumber),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		logger:        logg,
	}
	logg.Info(ctx, "payout client initialized")
	return c, nil
}

// CreateContact registers a payable contact for a seller.
func (c *Client) CreateContact(ctx context.Context, params ContactParams) (*Contact, error) {
	if params.Type == "" {
		params.Type = "vendor"
	}
	var contact Contact
	if err := c.post(ctx, "/contacts", params, &contact); err != nil {
		return nil, err
	}
	if contact.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payout contact missing id")
	}
	return &contact, nil
}

// CreateFundAccount links a seller bank account to an existing contact.
func (c *Client) CreateFundAccount(ctx context.Context, params FundAccountParams) (*FundAccount, error) {
	if params.ContactID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact id is required")
	}
	if params.AccountType == "" {
		params.AccountType = "bank_account"
	}
	var account FundAccount
	if err := c.post(ctx, "/fund_accounts", params, &account); err != nil {
		return nil, err
	}
	if account.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fund account missing id")
	}
	return &account, nil
}

// CreatePayout initiates a bank transfer. The provider dedupes on ReferenceID.
func (c *Client) CreatePayout(ctx context.Context, params PayoutParams) (*Payout, error) {
	if params.FundAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fund account id is required")
	}
	if params.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}
	if params.AccountNumber == "" {
		params.AccountNumber = c.accountNumber
	}
	if params.Currency == "" {
		params.Currency = "INR"
	}
	if params.Mode == "" {
		params.Mode = "IMPS"
	}
	if params.Purpose == "" {
		params.Purpose = "payout"
	}
	var payout Payout
	if err := c.post(ctx, "/payouts", params, &payout); err != nil {
		return nil, err
	}
	if payout.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payout missing id")
	}
	return &payout, nil
}

// FetchPayout reads the current provider-side payout state.
func (c *Client) FetchPayout(ctx context.Context, payoutID string) (*Payout, error) {
	if payoutID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payouts/"+payoutID, nil)
	if err != nil {
		return nil, fmt.Errorf("building payout request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	var payout Payout
	if err := c.do(req, &payout); err != nil {
		return nil, err
	}
	return &payout, nil
}

// VerifyWebhookSignature checks the provider HMAC over the raw webhook body.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if signature == "" || c.webhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payout request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building payout request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payout provider unreachable")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading payout response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("payout provider returned status %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding payout response")
	}
	return nil
}
