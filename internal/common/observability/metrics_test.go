package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordRun_ZeroValueIsSafe(t *testing.T) {
	o := &Observability{}
	assert.NotPanics(t, func() {
		o.RecordRun(context.Background(), "account-cleanup", "completed", time.Second)
		o.Shutdown()
	})
}
