package request_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/Household-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Household-Ledger-Backend/internal/validation"
)

func TestParseRunLimit(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		want    int
		wantErr bool
	}{
		{"default", "", validation.DefaultRunLimit, false},
		{"explicit", "5", 5, false},
		{"not a number", "five", 0, true},
		{"negative", "-1", 0, true},
		{"too large", "1000", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := request.ParseRunLimit(tt.param)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
