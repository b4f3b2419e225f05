package metrics

import (
	"net/http/httptest"
	"testing"

	"pooled-raffle/internal/raffle"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyUpdatesCollectors(t *testing.T) {
	m := New()
	m.Notify(raffle.Entered{Amount: uint256.NewInt(100)})
	m.Notify(raffle.Entered{Amount: uint256.NewInt(150)})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.entries))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.participants))
	assert.Equal(t, 250.0, testutil.ToFloat64(m.pool))

	m.Notify(raffle.DrawRequested{RequestID: 1})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.drawing))

	m.PayoutFailed()
	m.Notify(raffle.WinnerPicked{Amount: uint256.NewInt(250)})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.winners))
	assert.Equal(t, 250.0, testutil.ToFloat64(m.paidOut))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payoutFailures))
	assert.Zero(t, testutil.ToFloat64(m.pool))
	assert.Zero(t, testutil.ToFloat64(m.participants))
	assert.Zero(t, testutil.ToFloat64(m.drawing))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.Notify(raffle.DrawRequested{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "raffle_draws_requested_total 1")
}
