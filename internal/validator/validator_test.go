package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
)

func init() {
	Register()
}

type amountRequest struct {
	Amount decimal.Decimal  `binding:"required,gt=0,money"`
	Limit  *decimal.Decimal `binding:"required,gte=0,money"`
}

type dateRequest struct {
	Date        string `binding:"required,date_only"`
	CategoryIDs string `binding:"omitempty,uuid_list"`
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func TestDecimalTags(t *testing.T) {
	tests := []struct {
		name  string
		req   amountRequest
		valid bool
	}{
		{name: "positive", req: amountRequest{Amount: dec("12.50"), Limit: ptr(dec("0"))}, valid: true},
		{name: "zero_amount", req: amountRequest{Amount: dec("0"), Limit: ptr(dec("10"))}, valid: false},
		{name: "negative_amount", req: amountRequest{Amount: dec("-1"), Limit: ptr(dec("10"))}, valid: false},
		{name: "negative_limit", req: amountRequest{Amount: dec("1"), Limit: ptr(dec("-0.01"))}, valid: false},
		{name: "missing_limit", req: amountRequest{Amount: dec("1")}, valid: false},
		{name: "three_decimals", req: amountRequest{Amount: dec("1.005"), Limit: ptr(dec("1"))}, valid: false},
		{name: "too_large", req: amountRequest{Amount: dec("10000000000"), Limit: ptr(dec("1"))}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.req)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDateAndUUIDListTags(t *testing.T) {
	tests := []struct {
		name  string
		req   dateRequest
		valid bool
	}{
		{name: "plain_date", req: dateRequest{Date: "2024-02-29"}, valid: true},
		{name: "impossible_date", req: dateRequest{Date: "2023-02-29"}, valid: false},
		{name: "timestamp", req: dateRequest{Date: "2024-01-01T00:00:00Z"}, valid: false},
		{name: "uuid_list", req: dateRequest{Date: "2024-01-01", CategoryIDs: "0190a0a0-0000-7000-8000-000000000001, 0190a0a0-0000-7000-8000-000000000002"}, valid: true},
		{name: "bad_uuid_list", req: dateRequest{Date: "2024-01-01", CategoryIDs: "food,travel"}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.req)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
