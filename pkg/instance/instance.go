package instance

import (
	"os"
	"strings"
)

const envWorkerID = "SUPPLYHUB_WORKER_ID"

// GetID identifies this process in logs. It prefers SUPPLYHUB_WORKER_ID, then
// the host name, then a fixed default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(envWorkerID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
