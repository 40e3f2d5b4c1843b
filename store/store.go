// Package store is the SQL persistence layer. All queries go through a Store
// constructed with an open *sql.DB so handlers and tasks never touch global
// connection state.
package store

import (
	"database/sql"

	"github.com/zeebo/errs"
)

var (
	Error = errs.Class("store")

	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errs.New("record not found")
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}
