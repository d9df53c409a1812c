package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRun(t *testing.T) {
	before := testutil.ToFloat64(JobRuns.WithLabelValues("metrics-test", "failed"))

	done := ObserveRun("metrics-test")
	assert.Equal(t, float64(1), testutil.ToFloat64(JobsActive.WithLabelValues("metrics-test")))
	done(errors.New("boom"))

	assert.Equal(t, float64(0), testutil.ToFloat64(JobsActive.WithLabelValues("metrics-test")))
	assert.Equal(t, before+1, testutil.ToFloat64(JobRuns.WithLabelValues("metrics-test", "failed")))
}

func TestItem(t *testing.T) {
	before := testutil.ToFloat64(JobItems.WithLabelValues("metrics-test", ResultSent))
	Item("metrics-test", ResultSent)
	assert.Equal(t, before+1, testutil.ToFloat64(JobItems.WithLabelValues("metrics-test", ResultSent)))
}

func TestPush_NoURLIsNoop(t *testing.T) {
	assert.NoError(t, Push("", "parking-jobs"))
}
