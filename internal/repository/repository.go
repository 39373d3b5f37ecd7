// Package repository holds the pgx data-access layer. Repositories map
// pgx.ErrNoRows to ErrNotFound so callers never depend on driver errors.
package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")
