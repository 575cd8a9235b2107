package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersEnvAndIsStable(t *testing.T) {
	t.Setenv("FURNITURE_WORKER_ID", "cron-7")
	assert.Equal(t, "cron-7", ID())

	t.Setenv("FURNITURE_WORKER_ID", "cron-8")
	assert.Equal(t, "cron-7", ID(), "resolved once per process")
}
