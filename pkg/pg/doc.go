// Package pg bootstraps PostgreSQL access on top of pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config (populated from PG_* environment
// variables) and retries with exponential backoff until the database answers
// a ping. Migrate applies goose/v3 migrations through the same pool, either
// from a directory on disk or from an embedded fs.FS. WithTx scopes a
// transaction to a callback and always commits or rolls back before it
// returns.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, eventstore.Migrations, log); err != nil {
//		return err
//	}
//
//	err = pg.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "UPDATE ...")
//		return err
//	})
//
// Error helpers such as IsDuplicateKeyError classify *pgconn.PgError values.
package pg
