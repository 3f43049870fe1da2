package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gigpay/internal/domain"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*Flutterwave, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFlutterwave(srv.URL, "sk-test", 5*time.Second), srv
}

func TestVerifyChargeConvertsToMinorUnits(t *testing.T) {
	fw, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/4321/verify" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"id": 4321, "tx_ref": "pay-abc", "amount": 1000.00,
				"currency": "NGN", "status": "successful",
			},
		})
	})

	status, err := fw.VerifyCharge(context.Background(), "4321")
	if err != nil {
		t.Fatalf("VerifyCharge: %v", err)
	}
	if status.AmountMinor != 100000 {
		t.Errorf("amount = %d, want 100000", status.AmountMinor)
	}
	if status.Reference != "pay-abc" || status.Status != ChargeSuccessful {
		t.Errorf("status = %+v", status)
	}
}

func TestServerErrorMapsToGatewayUnavailable(t *testing.T) {
	fw, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := fw.VerifyCharge(context.Background(), "1"); !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Errorf("err = %v, want ErrGatewayUnavailable", err)
	}
}

func TestTransportErrorMapsToGatewayUnavailable(t *testing.T) {
	fw := NewFlutterwave("http://127.0.0.1:1", "sk-test", 200*time.Millisecond)
	if _, err := fw.VerifyCharge(context.Background(), "1"); !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Errorf("err = %v, want ErrGatewayUnavailable", err)
	}
}

func TestClientErrorIsNotRetryable(t *testing.T) {
	fw, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := fw.VerifyCharge(context.Background(), "1")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Errorf("4xx mapped to ErrGatewayUnavailable: %v", err)
	}
}

func TestInitiateTransferSendsMajorUnits(t *testing.T) {
	fw, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload["amount"] != 890.00 {
			t.Errorf("amount = %v, want 890", payload["amount"])
		}
		if payload["reference"] != "wd-1" {
			t.Errorf("reference = %v", payload["reference"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"id": 55, "status": "NEW"},
		})
	})

	ts, err := fw.InitiateTransfer(context.Background(), TransferRequest{
		Reference:     "wd-1",
		AmountMinor:   89000,
		Currency:      "NGN",
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	if err != nil {
		t.Fatalf("InitiateTransfer: %v", err)
	}
	if ts.Status != TransferPending {
		t.Errorf("NEW normalized to %q, want PENDING", ts.Status)
	}
}

func TestFetchTransferByReference(t *testing.T) {
	fw, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("reference"); got != "wd-9" {
			t.Errorf("reference query = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   []map[string]interface{}{{"id": 77, "status": "SUCCESSFUL"}},
		})
	})

	ts, err := fw.FetchTransfer(context.Background(), "wd-9")
	if err != nil {
		t.Fatalf("FetchTransfer: %v", err)
	}
	if ts.Status != TransferSuccessful || ts.GatewayID != "77" {
		t.Errorf("transfer = %+v", ts)
	}
}
