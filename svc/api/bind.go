package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func subscriptionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidParams, fmt.Errorf("subscription id: %w", err))
	}
	return id, nil
}

// asOf reads the required as_of query parameter (RFC 3339).
func asOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Time{}, errors.Join(ErrInvalidParams, errors.New("as_of is required"))
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidParams, fmt.Errorf("as_of: %w", err))
	}
	return t, nil
}
