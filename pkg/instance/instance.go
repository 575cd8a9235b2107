// Package instance names the running process for lock ownership and logs.
package instance

import (
	"os"
	"strconv"
	"sync"
)

// ID is FURNITURE_WORKER_ID when set, otherwise host and pid. It is
// resolved once per process.
var ID = sync.OnceValue(func() string {
	if id := os.Getenv("FURNITURE_WORKER_ID"); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return host + "-" + strconv.Itoa(os.Getpid())
})
