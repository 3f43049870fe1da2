package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"gigpay/internal/domain"
)

// Flutterwave talks to the Flutterwave v3 API. Amounts on the wire are major
// units (naira); the adapter converts to and from minor units at the boundary.
type Flutterwave struct {
	BaseURL   string
	SecretKey string
	client    *http.Client
}

func NewFlutterwave(baseURL, secretKey string, timeout time.Duration) *Flutterwave {
	if baseURL == "" {
		baseURL = "https://api.flutterwave.com/v3"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Flutterwave{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

func toMajor(minor int64) float64 { return float64(minor) / 100 }
func toMinor(major float64) int64 { return int64(math.Round(major * 100)) }

func (f *Flutterwave) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, f.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+f.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("[Flutterwave] %s %s transport error: %v", method, path, err)
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		log.Printf("[Flutterwave] %s %s: %d %s", method, path, resp.StatusCode, string(respBody))
		return fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("flutterwave: %s %s: %d %s", method, path, resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}

type fwEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *Flutterwave) InitializeCharge(ctx context.Context, req ChargeRequest) (*ChargeSession, error) {
	payload := map[string]interface{}{
		"tx_ref":          req.Reference,
		"amount":          toMajor(req.AmountMinor),
		"currency":        req.Currency,
		"redirect_url":    req.RedirectURL,
		"payment_options": "card",
		"meta":            req.Meta,
		"customer":        map[string]string{"email": req.CustomerEmail},
		"customizations": map[string]string{
			"title":       "Gigpay Payment",
			"description": req.Description,
		},
	}
	var env fwEnvelope
	if err := f.do(ctx, http.MethodPost, "/payments", payload, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("flutterwave initialize: %s", env.Message)
	}
	var data struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return &ChargeSession{Reference: req.Reference, CheckoutURL: data.Link}, nil
}

func (f *Flutterwave) VerifyCharge(ctx context.Context, gatewayID string) (*ChargeStatus, error) {
	var env fwEnvelope
	if err := f.do(ctx, http.MethodGet, "/transactions/"+gatewayID+"/verify", nil, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("flutterwave verify: %s", env.Message)
	}
	var data struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Status   string  `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return &ChargeStatus{
		GatewayID:   fmt.Sprintf("%d", data.ID),
		Reference:   data.TxRef,
		Status:      data.Status,
		AmountMinor: toMinor(data.Amount),
		Currency:    data.Currency,
	}, nil
}

func (f *Flutterwave) VerifyChargeByReference(ctx context.Context, reference string) (*ChargeStatus, error) {
	var env fwEnvelope
	if err := f.do(ctx, http.MethodGet, "/transactions/verify_by_reference?tx_ref="+reference, nil, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("flutterwave verify by reference: %s", env.Message)
	}
	var data struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Status   string  `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return &ChargeStatus{
		GatewayID:   fmt.Sprintf("%d", data.ID),
		Reference:   data.TxRef,
		Status:      data.Status,
		AmountMinor: toMinor(data.Amount),
		Currency:    data.Currency,
	}, nil
}

func (f *Flutterwave) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferStatus, error) {
	payload := map[string]interface{}{
		"account_bank":   req.BankCode,
		"account_number": req.AccountNumber,
		"amount":         toMajor(req.AmountMinor),
		"currency":       req.Currency,
		"narration":      req.Narration,
		"reference":      req.Reference,
	}
	var env fwEnvelope
	if err := f.do(ctx, http.MethodPost, "/transfers", payload, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("flutterwave transfer: %s", env.Message)
	}
	var data struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return &TransferStatus{GatewayID: fmt.Sprintf("%d", data.ID), Status: normalizeTransfer(data.Status)}, nil
}

func (f *Flutterwave) FetchTransfer(ctx context.Context, reference string) (*TransferStatus, error) {
	var env fwEnvelope
	if err := f.do(ctx, http.MethodGet, "/transfers?reference="+reference, nil, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("flutterwave fetch transfer: %s", env.Message)
	}
	var data []struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("flutterwave: no transfer for reference %s", reference)
	}
	return &TransferStatus{GatewayID: fmt.Sprintf("%d", data[0].ID), Status: normalizeTransfer(data[0].Status)}, nil
}

func (f *Flutterwave) ListBanks(ctx context.Context) ([]Bank, error) {
	var env fwEnvelope
	if err := f.do(ctx, http.MethodGet, "/banks/NG", nil, &env); err != nil {
		return nil, err
	}
	var banks []Bank
	if err := json.Unmarshal(env.Data, &banks); err != nil {
		return nil, err
	}
	return banks, nil
}

func (f *Flutterwave) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*Account, error) {
	payload := map[string]string{
		"account_number": accountNumber,
		"account_bank":   bankCode,
	}
	var env fwEnvelope
	if err := f.do(ctx, http.MethodPost, "/accounts/resolve", payload, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("flutterwave resolve: %s", env.Message)
	}
	var acct Account
	if err := json.Unmarshal(env.Data, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Flutterwave reports transfer states as NEW, PENDING, SUCCESSFUL, FAILED.
// NEW means accepted but not settled; treat it as pending.
func normalizeTransfer(status string) string {
	switch status {
	case "SUCCESSFUL":
		return TransferSuccessful
	case "FAILED":
		return TransferFailed
	default:
		return TransferPending
	}
}
