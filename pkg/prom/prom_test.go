package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	RecordDecision("send")
	assert.Empty(t, MetricCollectionCounterVec, "recorders are no-ops before Create")

	require.NoError(t, Create("test-host", "test", "reviewfollowup"))

	RecordDecision("send")
	RecordDecision("send")
	RecordDecision("wait")
	decisions := MetricCollectionCounterVec[SystemFollowUp+MetricDecisions]
	assert.Equal(t, 2.0, testutil.ToFloat64(decisions.WithLabelValues("send")))
	assert.Equal(t, 1.0, testutil.ToFloat64(decisions.WithLabelValues("wait")))

	RecordIntegrityViolation()
	assert.Equal(t, 1.0, testutil.ToFloat64(MetricCollectionCounters[SystemFollowUp+MetricIntegrityViolations]))

	RecordDispatch("sms", "sms-1", false, 0.2)
	RecordDispatch("sms", "sms-1", true, 0.1)
	assert.Equal(t, 2.0, testutil.ToFloat64(MetricCollectionCounterVec[SystemDispatch+MetricDispatchAttempts].WithLabelValues("sms", "sms-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(MetricCollectionCounterVec[SystemDispatch+MetricDispatchFailures].WithLabelValues("sms", "sms-1")))

	RecordQueueDepth("followup:dispatch", 12, 3)
	RecordQueueDepth("followup:dispatch", 10, 1)
	depth := MetricCollectionGaugeVec[SystemDispatch+MetricQueueDepth]
	assert.Equal(t, 10.0, testutil.ToFloat64(depth.WithLabelValues("followup:dispatch", "total")))
	assert.Equal(t, 1.0, testutil.ToFloat64(depth.WithLabelValues("followup:dispatch", "pending")))
}
