package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
	"github.com/dmitrymomot/sublife/pkg/httpserver"
	"github.com/dmitrymomot/sublife/pkg/requestid"
	"github.com/dmitrymomot/sublife/svc/api"
	"github.com/dmitrymomot/sublife/svc/subscription"
)

var t0 = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func day(n int) time.Time { return t0.AddDate(0, 0, n) }

type response[T any] struct {
	Data  T `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newServer(t *testing.T, opts ...api.Option) *httptest.Server {
	t.Helper()
	cat, err := catalog.LoadFile("../../pkg/catalog/testdata/catalog.yaml")
	require.NoError(t, err)
	svc := subscription.NewService(eventstore.NewMemoryStore(), cat)
	srv := httptest.NewServer(api.NewRouter(svc, opts...))
	t.Cleanup(srv.Close)
	return srv
}

func do[T any](t *testing.T, srv *httptest.Server, method, path string, body any) (int, response[T]) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func create(t *testing.T, srv *httptest.Server) uuid.UUID {
	t.Helper()
	code, res := do[subscription.MutationResult](t, srv, http.MethodPost, "/subscriptions", map[string]any{
		"plan":       map[string]any{"product": "Shotgun", "billing_period": "MONTHLY"},
		"start_date": t0,
	})
	require.Equal(t, http.StatusCreated, code)
	return res.Data.SubscriptionID
}

func stateAt(t *testing.T, srv *httptest.Server, id uuid.UUID, at time.Time) subscription.State {
	t.Helper()
	code, res := do[subscription.State](t, srv, http.MethodGet,
		fmt.Sprintf("/subscriptions/%s/state?as_of=%s", id, at.Format(time.RFC3339)), nil)
	require.Equal(t, http.StatusOK, code)
	return res.Data
}

func TestNewRouter_PanicsOnNilService(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { api.NewRouter(nil) })
}

func TestAPI_CreateSubscription(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		code, res := do[subscription.MutationResult](t, srv, http.MethodPost, "/subscriptions", map[string]any{
			"subscription_id": id,
			"plan":            map[string]any{"product": "Shotgun", "billing_period": "MONTHLY", "price_list": "DEFAULT"},
			"start_date":      t0,
		})
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, id, res.Data.SubscriptionID)
		assert.Equal(t, 1, res.Data.Version)
		require.Len(t, res.Data.Events, 2)
		assert.Equal(t, eventstore.KindCreate, res.Data.Events[0].Kind)
		assert.Equal(t, eventstore.KindPhase, res.Data.Events[1].Kind)

		code, res = do[subscription.MutationResult](t, srv, http.MethodPost, "/subscriptions", map[string]any{
			"subscription_id": id,
			"plan":            map[string]any{"product": "Shotgun", "billing_period": "MONTHLY"},
			"start_date":      t0,
		})
		assert.Equal(t, http.StatusConflict, code)
		require.NotNil(t, res.Error)
		assert.Equal(t, "already_exists", res.Error.Code)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		code, res := do[any](t, srv, http.MethodPost, "/subscriptions", map[string]any{
			"plan":       map[string]any{"product": "Bazooka", "billing_period": "MONTHLY"},
			"start_date": t0,
		})
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, res.Error)
		assert.Equal(t, "unknown_plan", res.Error.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()
		code, res := do[any](t, srv, http.MethodPost, "/subscriptions", map[string]any{
			"plan":       map[string]any{"product": "Shotgun", "billing_period": "MONTHLY"},
			"start_date": t0,
			"discount":   10,
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "bad_request", res.Error.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		t.Parallel()
		resp, err := srv.Client().Post(srv.URL+"/subscriptions", "text/plain", strings.NewReader("{}"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	})

	t.Run("missing content type and malformed body", func(t *testing.T) {
		t.Parallel()
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/subscriptions", strings.NewReader("{}"))
		require.NoError(t, err)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

		resp, err = srv.Client().Post(srv.URL+"/subscriptions", "application/json", strings.NewReader(`{"plan":`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "bad_request", body.Error.Code)
	})

	t.Run("missing start date", func(t *testing.T) {
		t.Parallel()
		code, res := do[any](t, srv, http.MethodPost, "/subscriptions", map[string]any{
			"plan": map[string]any{"product": "Shotgun", "billing_period": "MONTHLY"},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, res.Error)
	})
}

func TestAPI_Lifecycle(t *testing.T) {
	t.Parallel()
	srv := newServer(t)
	id := create(t, srv)
	base := "/subscriptions/" + id.String()

	st := stateAt(t, srv, id, day(31))
	assert.Equal(t, subscription.StatusActive, st.Status)
	assert.Equal(t, catalog.PhaseEvergreen, st.PhaseType)

	code, mut := do[subscription.MutationResult](t, srv, http.MethodPost, base+"/cancel", map[string]any{
		"expected_version": 1,
		"effective_date":   day(10),
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, mut.Data.Version)

	st = stateAt(t, srv, id, day(5))
	assert.Equal(t, subscription.StatusPendingCancellation, st.Status)
	require.NotNil(t, st.CancelDate)
	assert.True(t, st.CancelDate.Equal(day(10)))

	code, res := do[any](t, srv, http.MethodPost, base+"/change", map[string]any{
		"expected_version": 1,
		"effective_date":   day(6),
		"plan":             map[string]any{"product": "Pistol", "billing_period": "MONTHLY"},
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "version_conflict", res.Error.Code)

	code, mut = do[subscription.MutationResult](t, srv, http.MethodPost, base+"/uncancel", map[string]any{
		"requested_date": day(6),
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, mut.Data.Version)
	assert.Equal(t, subscription.StatusActive, stateAt(t, srv, id, day(31)).Status)

	code, _ = do[subscription.MutationResult](t, srv, http.MethodPost, base+"/cancel", map[string]any{
		"effective_date": day(40),
	})
	require.Equal(t, http.StatusOK, code)

	code, res = do[any](t, srv, http.MethodPost, base+"/reactivate", map[string]any{
		"effective_date": day(35),
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", res.Error.Code)

	code, mut = do[subscription.MutationResult](t, srv, http.MethodPost, base+"/reactivate", map[string]any{
		"effective_date": day(50),
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, eventstore.KindReactivate, mut.Data.Events[0].Kind)
	assert.Equal(t, subscription.StatusActive, stateAt(t, srv, id, day(51)).Status)

	code, events := do[struct {
		SubscriptionID uuid.UUID          `json:"subscription_id"`
		Events         []eventstore.Event `json:"events"`
	}](t, srv, http.MethodGet, base+"/events", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, events.Data.SubscriptionID)
	assert.NotEmpty(t, events.Data.Events)

	code, pending := do[struct {
		Events []eventstore.Event `json:"events"`
	}](t, srv, http.MethodGet, base+"/pending?as_of="+day(45).Format(time.RFC3339), nil)
	require.Equal(t, http.StatusOK, code)
	for _, e := range pending.Data.Events {
		assert.True(t, e.EffectiveDate.After(day(45)))
		assert.True(t, e.IsActive)
	}
}

func TestAPI_Reads(t *testing.T) {
	t.Parallel()
	srv := newServer(t)
	id := create(t, srv)

	tests := []struct {
		name string
		path string
		code int
		key  string
	}{
		{"missing as_of", "/subscriptions/" + id.String() + "/state", http.StatusBadRequest, "invalid_params"},
		{"malformed as_of", "/subscriptions/" + id.String() + "/pending?as_of=yesterday", http.StatusBadRequest, "invalid_params"},
		{"malformed id", "/subscriptions/not-a-uuid/events", http.StatusBadRequest, "invalid_params"},
		{"unknown subscription", "/subscriptions/" + uuid.NewString() + "/events", http.StatusNotFound, "not_found"},
		{"unknown route", "/plans", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, res := do[any](t, srv, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.code, code)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.key, res.Error.Code)
		})
	}
}

func TestAPI_BodyLimit(t *testing.T) {
	t.Parallel()
	srv := newServer(t, api.WithMaxBodyBytes(16))

	code, res := do[any](t, srv, http.MethodPost, "/subscriptions", map[string]any{
		"plan":       map[string]any{"product": "Shotgun", "billing_period": "MONTHLY"},
		"start_date": t0,
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Equal(t, "request_too_large", res.Error.Code)
}

type brokenService struct {
	subscription.Service
}

func (brokenService) GetEvents(context.Context, uuid.UUID) ([]eventstore.Event, error) {
	return nil, errors.New("connection reset by peer")
}

func (brokenService) GetPendingEvents(context.Context, uuid.UUID, time.Time) ([]eventstore.Event, error) {
	panic("boom")
}

func TestAPI_ServerErrors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(api.NewRouter(brokenService{}))
	t.Cleanup(srv.Close)

	code, res := do[any](t, srv, http.MethodGet, "/subscriptions/"+uuid.NewString()+"/events", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal_error", res.Error.Code)
	assert.NotContains(t, res.Error.Message, "connection reset")

	resp, err := srv.Client().Get(srv.URL + "/subscriptions/" + uuid.NewString() + "/pending?as_of=" + t0.Format(time.RFC3339))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAPI_Infrastructure(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "sublife_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := newServer(t,
		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		api.WithHealthChecks(httpserver.Check{Name: "store", Probe: func(context.Context) error { return nil }}),
	)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"store":"ok"`)
	assert.NotEmpty(t, resp.Header.Get(requestid.Header))

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "sublife_test_total 1")
}
