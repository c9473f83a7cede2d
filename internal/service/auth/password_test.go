package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
)

func Test_ValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		password    string
		companyName string
		wantErr     bool
	}{
		{
			name:     "strong password ok",
			password: "Correct-Horse-17",
			wantErr:  false,
		},
		{
			name:     "three classes without symbols ok",
			password: "Trucks4Berlin",
			wantErr:  false,
		},
		{
			name:     "too short",
			password: "Ab1!short",
			wantErr:  true,
		},
		{
			name:     "only two character classes",
			password: "alllowercase1234",
			wantErr:  true,
		},
		{
			name:        "contains company name",
			password:    "Acme-Logistics-99",
			companyName: "Acme-Logistics",
			wantErr:     true,
		},
		{
			name:        "contains company name in different case",
			password:    "xXacme haulingXx7",
			companyName: "ACME HAULING",
			wantErr:     true,
		},
		{
			name:        "company name not a substring ok",
			password:    "Correct-Horse-17",
			companyName: "Acme Logistics",
			wantErr:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.companyName)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrPasswordPolicy, "should return well known error")
		})
	}
}
