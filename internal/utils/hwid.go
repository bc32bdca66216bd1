package utils

import (
	"github.com/denisbrodbeck/machineid"
)

// HWID is a stable, app-scoped identifier for this machine. Sent with every
// API request so the server can tell devices of the same account apart.
var HWID = func() string {
	id, err := machineid.ProtectedID("updrive")
	if err != nil {
		return "unknown"
	}
	return id
}()
