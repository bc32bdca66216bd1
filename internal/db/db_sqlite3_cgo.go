//go:build cgo && sqlite3_cgo

package db

// Opt-in cgo driver for platforms where the wasm build underperforms.
import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	driverID   = "mattn/go-sqlite3"
	driverName = "sqlite3"
)
