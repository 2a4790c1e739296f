package binder_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sublife/pkg/binder"
)

type planRequest struct {
	Product       string     `json:"product"`
	BillingPeriod string     `json:"billing_period"`
	PhaseType     *string    `json:"phase_type,omitempty"`
	EffectiveDate time.Time  `json:"effective_date"`
	Tags          []string   `json:"tags"`
	CancelDate    *time.Time `json:"cancel_date,omitempty"`
}

func jsonRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("valid body", func(t *testing.T) {
		t.Parallel()
		req := jsonRequest(`{"product":"Shotgun","billing_period":"MONTHLY","effective_date":"2024-03-01T12:00:00Z","tags":["a","b"]}`, "application/json")

		var result planRequest
		require.NoError(t, binder.JSON()(req, &result))
		assert.Equal(t, "Shotgun", result.Product)
		assert.Equal(t, "MONTHLY", result.BillingPeriod)
		assert.True(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC).Equal(result.EffectiveDate))
		assert.Equal(t, []string{"a", "b"}, result.Tags)
		assert.Nil(t, result.PhaseType)
		assert.Nil(t, result.CancelDate)
	})

	t.Run("content type parameters", func(t *testing.T) {
		t.Parallel()
		req := jsonRequest(`{"product":"Pistol","phase_type":"TRIAL"}`, "application/json; charset=utf-8")

		var result planRequest
		require.NoError(t, binder.JSON()(req, &result))
		require.NotNil(t, result.PhaseType)
		assert.Equal(t, "TRIAL", *result.PhaseType)
	})

	t.Run("missing content type", func(t *testing.T) {
		t.Parallel()
		var result planRequest
		err := binder.JSON()(jsonRequest(`{}`, ""), &result)
		assert.ErrorIs(t, err, binder.ErrMissingContentType)
	})

	t.Run("wrong content type", func(t *testing.T) {
		t.Parallel()
		var result planRequest
		err := binder.JSON()(jsonRequest(`{}`, "text/plain"), &result)
		assert.ErrorIs(t, err, binder.ErrUnsupportedMediaType)
		assert.Contains(t, err.Error(), "text/plain")
	})

	t.Run("malformed bodies", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name string
			body string
			want string
		}{
			{"empty body", ``, "empty body"},
			{"truncated", `{"product":"Shotgun"`, "unexpected EOF"},
			{"invalid character", `{product:"Shotgun"}`, "invalid character"},
			{"type mismatch", `{"product":42}`, "cannot unmarshal"},
			{"unknown field", `{"product":"Shotgun","plan":"x"}`, "unknown field"},
			{"trailing data", `{"product":"Shotgun"}{"product":"Pistol"}`, "unexpected data after JSON object"},
			{"bad date", `{"effective_date":"yesterday"}`, "parsing time"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				var result planRequest
				err := binder.JSON()(jsonRequest(tt.body, "application/json"), &result)
				require.ErrorIs(t, err, binder.ErrFailedToParseJSON)
				assert.Contains(t, err.Error(), tt.want)
			})
		}
	})

	t.Run("size limit", func(t *testing.T) {
		t.Parallel()
		body := `{"product":"` + strings.Repeat("x", 64) + `"}`
		bind := binder.JSON(binder.WithMaxSize(32))

		var result planRequest
		err := bind(jsonRequest(body, "application/json"), &result)
		assert.ErrorIs(t, err, binder.ErrRequestTooLarge)

		exact := binder.JSON(binder.WithMaxSize(int64(len(body))))
		require.NoError(t, exact(jsonRequest(body, "application/json"), &result))
		assert.Len(t, result.Product, 64)
	})

	t.Run("max bytes reader", func(t *testing.T) {
		t.Parallel()
		req := jsonRequest(`{"product":"`+strings.Repeat("x", 64)+`"}`, "application/json")
		req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 16)

		var result planRequest
		err := binder.JSON()(req, &result)
		assert.ErrorIs(t, err, binder.ErrRequestTooLarge)
	})

	t.Run("cancelled request", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := jsonRequest(`{}`, "application/json").WithContext(ctx)

		var result planRequest
		err := binder.JSON()(req, &result)
		assert.ErrorIs(t, err, binder.ErrFailedToParseJSON)
	})
}
