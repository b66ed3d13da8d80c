package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/logging"
)

type stubTx struct {
	open bool
}

func (s *stubTx) IsOpen() bool                     { return s.open }
func (s *stubTx) Commit(ctx context.Context) error { return nil }
func (s *stubTx) Rollback(ctx context.Context) error {
	return nil
}
func (s *stubTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (s *stubTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

// unavailableDB fails every new transaction, so a test passes only when
// GetTx never reaches the database.
type unavailableDB struct{}

func (d *unavailableDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, errors.New("connection refused")
}
func (d *unavailableDB) Close() error { return nil }
func (d *unavailableDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, errors.New("connection refused")
}
func (d *unavailableDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return errors.New("connection refused")
}
func (d *unavailableDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return errors.New("connection refused")
}
func (d *unavailableDB) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	return nil, errors.New("connection refused")
}
func (d *unavailableDB) PingContext(ctx context.Context) error { return errors.New("connection refused") }
func (d *unavailableDB) Stats() sql.DBStats                    { return sql.DBStats{} }
func (d *unavailableDB) Unsafe() *sqlx.DB                      { return nil }
func (d *unavailableDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error) {
	return GetTx(ctx, logging.NewNop(), d, opts)
}

func TestGetTx_ReusesOpenTransactionFromContext(t *testing.T) {
	tx := &stubTx{open: true}
	ctx := context.WithValue(context.Background(), txStatusKey, "open")
	ctx = context.WithValue(ctx, txKey, Tx(tx))

	gotCtx, got, err := GetTx(ctx, logging.NewNop(), &unavailableDB{}, nil)
	require.NoError(t, err)
	assert.Same(t, tx, got)
	assert.Equal(t, ctx, gotCtx)
}

func TestGetTx_ClosedTransactionIsNotReused(t *testing.T) {
	tx := &stubTx{open: false}
	ctx := context.WithValue(context.Background(), txStatusKey, "open")
	ctx = context.WithValue(ctx, txKey, Tx(tx))

	_, _, err := GetTx(ctx, logging.NewNop(), &unavailableDB{}, nil)
	require.Error(t, err, "a closed transaction must not be handed out again")
}
