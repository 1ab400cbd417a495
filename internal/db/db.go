package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taigaio/taiga/internal/config"
)

// uniqueViolation is the postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

func NewConn(conf *config.Config) *sqlx.DB {
	slog.Info("Connecting to database")

	// Connect to database
	db, err := sqlx.Open("postgres", conf.DSN())
	if err != nil {
		log.Fatal(err)
	}
	err = db.Ping()
	if err != nil {
		log.Fatalln("Unable to connect to database", err.Error())
	}

	slog.Info("Connected to database")

	return db
}

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories can be bound to either.
type Querier interface {
	sqlx.ExtContext
	sqlx.PreparerContext
}

// RunInTx runs fn inside a transaction. When q is already a transaction fn joins it and the
// caller stays responsible for commit or rollback.
func RunInTx(ctx context.Context, q Querier, fn func(tx *sqlx.Tx) error) (err error) {
	if tx, ok := q.(*sqlx.Tx); ok {
		return fn(tx)
	}

	conn, ok := q.(*sqlx.DB)
	if !ok {
		return fmt.Errorf("unsupported querier %T", q)
	}

	tx, err := conn.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Unable to rollback transaction", slog.Any("error", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err is a postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
