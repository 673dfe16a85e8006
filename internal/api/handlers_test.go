package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/app"
	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

func validOrderRequest() orderRequest {
	return orderRequest{Order: domain.Order{
		OrderID:                "order-1",
		OrderDate:              time.Now(),
		NetAmount:              decimal.NewFromInt(100),
		CustomerID:             "cust-1",
		CustomerBillingCountry: "DE",
	}}
}

func TestOrderRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(req *orderRequest)
		wantMsg bool
	}{
		{
			name:   "valid order passes",
			mutate: func(req *orderRequest) {},
		},
		{
			name:    "missing order id",
			mutate:  func(req *orderRequest) { req.OrderID = "" },
			wantMsg: true,
		},
		{
			name:    "zero order date",
			mutate:  func(req *orderRequest) { req.OrderDate = time.Time{} },
			wantMsg: true,
		},
		{
			name:    "zero net amount",
			mutate:  func(req *orderRequest) { req.NetAmount = decimal.Zero },
			wantMsg: true,
		},
		{
			name:    "negative net amount",
			mutate:  func(req *orderRequest) { req.NetAmount = decimal.NewFromInt(-5) },
			wantMsg: true,
		},
		{
			name:    "missing customer",
			mutate:  func(req *orderRequest) { req.CustomerID = "" },
			wantMsg: true,
		},
		{
			name:    "three-letter country code",
			mutate:  func(req *orderRequest) { req.CustomerBillingCountry = "DEU" },
			wantMsg: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validOrderRequest()
			tt.mutate(&req)
			msg := req.validate()
			if tt.wantMsg && msg == "" {
				t.Fatal("expected a validation message")
			}
			if !tt.wantMsg && msg != "" {
				t.Fatalf("expected no validation message, got %q", msg)
			}
		})
	}
}

func TestRespondWithServiceErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "duplicate order conflicts", err: app.ErrDuplicateOrder, wantCode: 409},
		{name: "region conflict conflicts", err: app.ErrRegionConflict, wantCode: 409},
		{name: "already attributed conflicts", err: app.ErrAlreadyAttributed, wantCode: 409},
		{name: "below minimum unprocessable", err: app.ErrBelowMinimumPayout, wantCode: 422},
		{name: "no eligible unprocessable", err: app.ErrNoEligibleCommissions, wantCode: 422},
		{name: "invalid payout status unprocessable", err: app.ErrInvalidPayoutStatus, wantCode: 422},
		{name: "already signed unprocessable", err: app.ErrContractAlreadySigned, wantCode: 422},
		{name: "no active agreement unprocessable", err: app.ErrNoActiveAgreement, wantCode: 422},
		{name: "rate limited", err: app.ErrRateLimited, wantCode: 429},
		{name: "missing payout not found", err: store.ErrPayoutNotFound, wantCode: 404},
		{name: "missing attribution not found", err: store.ErrAttributionNotFound, wantCode: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, tt.err, "test")
			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected JSON content type, got %q", ct)
			}
		})
	}
}

func TestQueryIntFallsBackOnBadInput(t *testing.T) {
	req := httptest.NewRequest("GET", "/commissions?limit=abc&offset=-3", nil)
	if got := queryInt(req, "limit", 50); got != 50 {
		t.Fatalf("expected fallback 50, got %d", got)
	}
	if got := queryInt(req, "offset", 0); got != 0 {
		t.Fatalf("expected fallback 0, got %d", got)
	}

	req = httptest.NewRequest("GET", "/commissions?limit=25", nil)
	if got := queryInt(req, "limit", 50); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
}

func TestPayoutPeriodPattern(t *testing.T) {
	valid := []string{"2025-01", "2025-12", "1999-06"}
	invalid := []string{"2025-13", "2025-00", "2025-1", "25-01", "2025/01", ""}

	for _, period := range valid {
		if !payoutPeriodPattern.MatchString(period) {
			t.Fatalf("expected %q to be a valid period", period)
		}
	}
	for _, period := range invalid {
		if payoutPeriodPattern.MatchString(period) {
			t.Fatalf("expected %q to be rejected", period)
		}
	}
}
