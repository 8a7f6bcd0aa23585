package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEventProcessed(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.EventsProcessed.WithLabelValues("join"))
	RecordEventProcessed("join", 0.01)
	after := testutil.ToFloat64(DefaultMetrics.EventsProcessed.WithLabelValues("join"))
	assert.Equal(t, before+1, after)
}

func TestRecordDBQuery_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "commit"))
	RecordDBQuery("postgres", "commit", 0.1, nil)
	RecordDBQuery("postgres", "commit", 0.1, errors.New("boom"))
	after := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "commit"))
	assert.Equal(t, before+1, after)
}

func TestUpdateWatchedAddresses(t *testing.T) {
	UpdateWatchedAddresses(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(DefaultMetrics.WatchedAddresses))
}
