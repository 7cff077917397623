package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("ORACLE_PROVIDER", "")
	t.Setenv("HF_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.DB.Enabled())
	assert.Equal(t, 50.0, cfg.Delivery.ServiceRadiusKm)
	assert.Equal(t, "2.00", cfg.Delivery.CoordinateBaseFee.StringFixed(2))
	assert.Equal(t, "0.50", cfg.Delivery.CoordinatePerKm.StringFixed(2))
	assert.Equal(t, "3.00", cfg.Delivery.TextBaseFee.StringFixed(2))
	assert.Equal(t, "0.80", cfg.Delivery.TextPerKm.StringFixed(2))
	assert.Equal(t, 5*time.Second, cfg.Delivery.DispatchNoticeDelay)
	assert.Equal(t, "my", cfg.Geocoding.CountryCode)
	assert.Equal(t, "none", cfg.Oracle.Provider)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("SERVICE_RADIUS_KM", "far")
	t.Setenv("DISPATCH_NOTICE_DELAY", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVICE_RADIUS_KM")
	assert.Contains(t, err.Error(), "DISPATCH_NOTICE_DELAY")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing token", map[string]string{"HF_TOKEN": "x"}, "Token"},
		{"unknown provider", map[string]string{"TOKEN": "t", "ORACLE_PROVIDER": "magic"}, "Provider"},
		{"huggingface without token", map[string]string{"TOKEN": "t", "ORACLE_PROVIDER": "huggingface"}, "HF_TOKEN"},
		{"huggingface with token", map[string]string{"TOKEN": "t", "ORACLE_PROVIDER": "huggingface", "HF_TOKEN": "hf_x"}, ""},
		{"gemini without key", map[string]string{"TOKEN": "t", "ORACLE_PROVIDER": "gemini"}, "GEMINI_API_KEY"},
		{"bad origin", map[string]string{"TOKEN": "t", "ORACLE_PROVIDER": "none", "RESTAURANT_LAT": "123"}, "OriginLat"},
		{"negative fee", map[string]string{"TOKEN": "t", "ORACLE_PROVIDER": "none", "TEXT_PER_KM": "-1"}, "TEXT_PER_KM"},
		{"oracle disabled", map[string]string{"TOKEN": "t", "ORACLE_PROVIDER": "none"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TOKEN", "")
			t.Setenv("HF_TOKEN", "")
			t.Setenv("ORACLE_PROVIDER", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
