//go:build !sqlite3_cgo

package db

// Pure-Go driver, no cgo toolchain needed for the default build.
import (
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	driverID   = "ncruces/go-sqlite3"
	driverName = "sqlite3"
)
