package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
)

var errNoStatements = errors.New("fake tx driver does not execute statements")

// TxRecorder counts transactions opened through a database returned by NewTxDB.
type TxRecorder struct {
	mu        sync.Mutex
	Begins    int
	Commits   int
	Rollbacks int
	ReadOnly  int
	// CommitErr, when set, is returned by every Commit.
	CommitErr error
}

func (r *TxRecorder) Snapshot() (begins, commits, rollbacks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Begins, r.Commits, r.Rollbacks
}

// NewTxDB returns a *sql.DB whose transactions only record Commit and Rollback.
// Services can open real *sql.Tx values while repositories are mocked.
func NewTxDB() (*sql.DB, *TxRecorder) {
	rec := &TxRecorder{}
	return sql.OpenDB(txConnector{rec: rec}), rec
}

type txConnector struct {
	rec *TxRecorder
}

func (c txConnector) Connect(context.Context) (driver.Conn, error) {
	return &txConn{rec: c.rec}, nil
}

func (c txConnector) Driver() driver.Driver {
	return txDriver{rec: c.rec}
}

type txDriver struct {
	rec *TxRecorder
}

func (d txDriver) Open(string) (driver.Conn, error) {
	return &txConn{rec: d.rec}, nil
}

type txConn struct {
	rec *TxRecorder
}

func (c *txConn) Prepare(string) (driver.Stmt, error) {
	return nil, errNoStatements
}

func (c *txConn) Close() error {
	return nil
}

func (c *txConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *txConn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	c.rec.Begins++
	if opts.ReadOnly {
		c.rec.ReadOnly++
	}
	return &fakeTx{rec: c.rec}, nil
}

type fakeTx struct {
	rec *TxRecorder
}

func (t *fakeTx) Commit() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	if t.rec.CommitErr != nil {
		return t.rec.CommitErr
	}
	t.rec.Commits++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.Rollbacks++
	return nil
}
