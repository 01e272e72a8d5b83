package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTransition(t *testing.T) {
	before := testutil.ToFloat64(LeaseTransitions.WithLabelValues("activateLease", "success"))
	ObserveTransition("activateLease", time.Now(), "success")
	after := testutil.ToFloat64(LeaseTransitions.WithLabelValues("activateLease", "success"))
	assert.Equal(t, before+1, after)
}
