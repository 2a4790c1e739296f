package requestid_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sublife/pkg/logger"
	"github.com/dmitrymomot/sublife/pkg/requestid"
)

func serve(t *testing.T, header string) (seen string, rec *httptest.ResponseRecorder) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates id", func(t *testing.T) {
		t.Parallel()
		seen, rec := serve(t, "")
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(requestid.Header))
	})

	for _, id := range []string{"abc123", "ABC-123_xyz", "550e8400-e29b-41d4-a716-446655440000"} {
		t.Run("keeps "+id, func(t *testing.T) {
			t.Parallel()
			seen, rec := serve(t, id)
			assert.Equal(t, id, seen)
			assert.Equal(t, id, rec.Header().Get(requestid.Header))
		})
	}

	for name, id := range map[string]string{
		"spaces":     "test request id",
		"slashes":    "a/b/c",
		"markup":     "<script>alert(1)</script>",
		"too long":   strings.Repeat("a", 129),
		"at and sha": "test@request#id",
	} {
		t.Run("replaces "+name, func(t *testing.T) {
			t.Parallel()
			seen, rec := serve(t, id)
			assert.NotEqual(t, id, seen)
			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(requestid.Header))
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))
	assert.Equal(t, "r-1", requestid.FromContext(requestid.WithContext(context.Background(), "r-1")))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	log.InfoContext(requestid.WithContext(context.Background(), "r-42"), "with id")
	log.InfoContext(context.Background(), "without id")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "r-42", first["request_id"])
	assert.NotContains(t, second, "request_id")
}
