package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRun(t *testing.T) {
	before := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("degraded"))
	RecordRun("degraded", 150*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("degraded")))
}

func TestRecordDispatch(t *testing.T) {
	before := testutil.ToFloat64(ApprovalDispatchTotal.WithLabelValues("failure"))
	RecordDispatch(false)
	assert.Equal(t, before+1, testutil.ToFloat64(ApprovalDispatchTotal.WithLabelValues("failure")))
}

func TestRecordDegradation(t *testing.T) {
	before := testutil.ToFloat64(DegradationsTotal.WithLabelValues("no_results"))
	RecordDegradation("no_results")
	RecordCacheLookup("hit")
	assert.Equal(t, before+1, testutil.ToFloat64(DegradationsTotal.WithLabelValues("no_results")))
}
