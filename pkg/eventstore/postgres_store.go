package eventstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/pg"
)

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	pg.TxBeginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on PostgreSQL.
//
// AppendVersion locks the subscription row, verifies the version, locks the
// rows it supersedes and bumps active_version with a conditional UPDATE, all in
// one transaction. ClaimDueEvents takes the subscription row FOR UPDATE SKIP
// LOCKED and flips processed with a conditional UPDATE, so one claimer works a
// subscription at a time and concurrent claimers never receive the same event.
type PostgresStore struct {
	db    DB
	clock Clock
}

var _ Store = (*PostgresStore)(nil)

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresClock overrides the clock used for created and processed dates.
func WithPostgresClock(c Clock) PostgresOption {
	return func(s *PostgresStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewPostgresStore creates a store on top of db. Panics if db is nil.
func NewPostgresStore(db DB, opts ...PostgresOption) *PostgresStore {
	if db == nil {
		panic("eventstore: DB is required")
	}
	s := &PostgresStore{db: db, clock: utcNow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const eventColumns = `id, subscription_id, version, kind, effective_date, created_date,
	plan_name, phase_type, is_active, processed, processed_date`

// AppendVersion implements Store.
func (s *PostgresStore) AppendVersion(ctx context.Context, a Append) ([]Event, error) {
	if err := validateAppend(a); err != nil {
		return nil, err
	}

	asOf := normalize(a.AsOf)
	var inserted []Event

	err := pg.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		current, lastCreated, exists, err := lockSubscription(ctx, tx, a.SubscriptionID)
		if err != nil {
			return err
		}
		if current != a.Version-1 {
			return fmt.Errorf("%w: expected version %d, found %d", ErrVersionConflict, a.Version-1, current)
		}

		if err := lockSuperseded(ctx, tx, a.SubscriptionID, asOf); err != nil {
			return err
		}

		if exists {
			var latest *time.Time
			if err := tx.QueryRow(ctx, `
				SELECT max(effective_date) FROM subscription_events
				WHERE subscription_id = $1 AND is_active
				  AND (kind = 'CREATE' OR effective_date < $2)`,
				a.SubscriptionID, asOf,
			).Scan(&latest); err != nil {
				return err
			}
			if latest != nil && !normalize(a.Events[0].EffectiveDate).After(*latest) {
				return fmt.Errorf("%w: first event must be after %s", ErrInvalidAppend, latest.UTC().Format(time.RFC3339))
			}
		}

		createdAt := normalize(s.clock())
		if createdAt.Before(lastCreated) {
			createdAt = lastCreated
		}
		inserted = prepareEvents(a, createdAt)

		if !exists {
			if _, err := tx.Exec(ctx, `
				INSERT INTO subscriptions (id, bundle_id, start_date, active_version, last_created_date, created_date)
				VALUES ($1, $2, $3, 0, $4, $4)`,
				a.SubscriptionID, a.BundleID, inserted[0].EffectiveDate, createdAt,
			); err != nil {
				if pg.IsDuplicateKeyError(err) {
					return errors.Join(ErrVersionConflict, err)
				}
				return err
			}
		}

		if _, err := tx.Exec(ctx, `
			UPDATE subscription_events SET is_active = FALSE
			WHERE subscription_id = $1 AND is_active AND kind <> 'CREATE' AND effective_date >= $2`,
			a.SubscriptionID, asOf,
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, e := range inserted {
			batch.Queue(`
				INSERT INTO subscription_events (`+eventColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				e.ID, e.SubscriptionID, e.Version, string(e.Kind), e.EffectiveDate, e.CreatedDate,
				e.PlanName, string(e.PhaseType), e.IsActive, e.Processed, e.ProcessedDate,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE subscriptions SET active_version = $2, last_created_date = $3
			WHERE id = $1 AND active_version = $4`,
			a.SubscriptionID, a.Version, createdAt, a.Version-1,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrHistoryRewrite) || errors.Is(err, ErrInvalidAppend) {
			return nil, err
		}
		if pg.IsDuplicateKeyError(err) {
			return nil, errors.Join(ErrInvalidAppend, err)
		}
		return nil, errors.Join(ErrFailedToAppend, err)
	}

	return cloneEvents(inserted), nil
}

// lockSubscription takes the per-subscription row lock that serialises writers.
func lockSubscription(ctx context.Context, tx pgx.Tx, id uuid.UUID) (version int, lastCreated time.Time, exists bool, err error) {
	err = tx.QueryRow(ctx, `
		SELECT active_version, last_created_date FROM subscriptions
		WHERE id = $1 FOR UPDATE`, id,
	).Scan(&version, &lastCreated)
	if pg.IsNotFoundError(err) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, err
	}
	return version, lastCreated.UTC(), true, nil
}

// lockSuperseded locks the rows about to be deactivated so a concurrent claim
// either finishes first (and is detected here) or skips them.
func lockSuperseded(ctx context.Context, tx pgx.Tx, id uuid.UUID, asOf time.Time) error {
	rows, err := tx.Query(ctx, `
		SELECT id, kind, effective_date, processed FROM subscription_events
		WHERE subscription_id = $1 AND is_active AND kind <> 'CREATE' AND effective_date >= $2
		FOR UPDATE`, id, asOf,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventID   uuid.UUID
			kind      string
			effective time.Time
			processed bool
		)
		if err := rows.Scan(&eventID, &kind, &effective, &processed); err != nil {
			return err
		}
		if processed {
			return fmt.Errorf("%w: %s event %s at %s", ErrHistoryRewrite, kind, eventID, effective.UTC().Format(time.RFC3339))
		}
	}
	return rows.Err()
}

// GetSubscription implements Store.
func (s *PostgresStore) GetSubscription(ctx context.Context, id uuid.UUID) (Subscription, error) {
	var sub Subscription
	err := s.db.QueryRow(ctx, `
		SELECT id, bundle_id, start_date, active_version, created_date
		FROM subscriptions WHERE id = $1`, id,
	).Scan(&sub.ID, &sub.BundleID, &sub.StartDate, &sub.ActiveVersion, &sub.CreatedDate)
	if pg.IsNotFoundError(err) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		return Subscription{}, errors.Join(ErrFailedToLoad, err)
	}
	sub.StartDate = sub.StartDate.UTC()
	sub.CreatedDate = sub.CreatedDate.UTC()
	return sub, nil
}

// GetEvents implements Store.
func (s *PostgresStore) GetEvents(ctx context.Context, id uuid.UUID) ([]Event, error) {
	return s.listEvents(ctx, id, `TRUE`)
}

// GetActiveEvents implements Store.
func (s *PostgresStore) GetActiveEvents(ctx context.Context, id uuid.UUID) ([]Event, error) {
	return s.listEvents(ctx, id, `is_active`)
}

// GetPendingEvents implements Store.
func (s *PostgresStore) GetPendingEvents(ctx context.Context, id uuid.UUID, asOf time.Time) ([]Event, error) {
	return s.listEvents(ctx, id, `is_active AND NOT processed AND effective_date > $2`, normalize(asOf))
}

func (s *PostgresStore) listEvents(ctx context.Context, id uuid.UUID, where string, args ...any) ([]Event, error) {
	if _, err := s.GetSubscription(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+eventColumns+` FROM subscription_events
		WHERE subscription_id = $1 AND `+where+`
		ORDER BY effective_date, seq`,
		append([]any{id}, args...)...,
	)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}

	events, err := scanEvents(rows)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	return events, nil
}

// DueSubscriptions implements Store.
func (s *PostgresStore) DueSubscriptions(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT subscription_id FROM subscription_events
		WHERE is_active AND NOT processed AND effective_date <= $1
		GROUP BY subscription_id
		ORDER BY min(effective_date), subscription_id
		LIMIT $2`, normalize(asOf), limit,
	)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	return ids, nil
}

// ClaimDueEvents implements Store.
func (s *PostgresStore) ClaimDueEvents(ctx context.Context, id uuid.UUID, asOf time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, nil
	}

	var claimed []Event
	err := pg.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		// One claimer per subscription at a time. A subscription locked by
		// another claimer or an append is left for the next tick.
		var locked uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM subscriptions WHERE id = $1 FOR UPDATE SKIP LOCKED`, id,
		).Scan(&locked)
		if pg.IsNotFoundError(err) {
			return nil
		}
		if err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			UPDATE subscription_events SET processed = TRUE, processed_date = $3
			WHERE id IN (
				SELECT id FROM subscription_events
				WHERE subscription_id = $1 AND is_active AND NOT processed AND effective_date <= $2
				ORDER BY effective_date
				LIMIT $4
				FOR UPDATE
			) AND is_active AND NOT processed
			RETURNING `+eventColumns,
			id, normalize(asOf), normalize(s.clock()), limit,
		)
		if err != nil {
			return err
		}
		claimed, err = scanEvents(rows)
		return err
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToClaim, err)
	}

	slices.SortStableFunc(claimed, func(a, b Event) int {
		return a.EffectiveDate.Compare(b.EffectiveDate)
	})
	return claimed, nil
}

func scanEvents(rows pgx.Rows) ([]Event, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var (
			e     Event
			kind  string
			phase string
		)
		if err := row.Scan(
			&e.ID, &e.SubscriptionID, &e.Version, &kind, &e.EffectiveDate, &e.CreatedDate,
			&e.PlanName, &phase, &e.IsActive, &e.Processed, &e.ProcessedDate,
		); err != nil {
			return Event{}, err
		}
		e.Kind = Kind(kind)
		e.PhaseType = catalog.PhaseType(phase)
		e.EffectiveDate = e.EffectiveDate.UTC()
		e.CreatedDate = e.CreatedDate.UTC()
		if e.ProcessedDate != nil {
			at := e.ProcessedDate.UTC()
			e.ProcessedDate = &at
		}
		return e, nil
	})
}
