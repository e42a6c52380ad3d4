package validator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/offers-bot/internal/models"
)

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		offer   models.Offer
		wantErr bool
	}{
		{
			name: "Valid Offer",
			offer: models.Offer{
				Candidate:       models.Candidate{ID: "B000TEST01", Title: "Test Offer"},
				Price:           decimal.NewFromInt(80),
				OldPrice:        decimal.NewFromInt(100),
				DiscountPercent: 20,
			},
			wantErr: false,
		},
		{
			name: "Zero Price",
			offer: models.Offer{
				Candidate: models.Candidate{ID: "B000TEST02"},
				Price:     decimal.Zero,
				OldPrice:  decimal.NewFromInt(10),
			},
			wantErr: false,
		},
		{
			name: "Missing ID",
			offer: models.Offer{
				Price:    decimal.NewFromInt(80),
				OldPrice: decimal.NewFromInt(100),
			},
			wantErr: true,
		},
		{
			name: "Negative Price",
			offer: models.Offer{
				Candidate: models.Candidate{ID: "B000TEST03"},
				Price:     decimal.NewFromInt(-1),
				OldPrice:  decimal.NewFromInt(100),
			},
			wantErr: true,
		},
		{
			name: "Discount Above 100",
			offer: models.Offer{
				Candidate:       models.Candidate{ID: "B000TEST04"},
				Price:           decimal.NewFromInt(1),
				OldPrice:        decimal.NewFromInt(100),
				DiscountPercent: 120,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateStruct(tt.offer); (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
