package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveCommand(t *testing.T) {
	before := testutil.ToFloat64(Commands.WithLabelValues("GET", "SUCCESS"))

	ObserveCommand("GET", "SUCCESS", 2*time.Millisecond)
	ObserveCommand("GET", "SUCCESS", time.Millisecond)

	require.Equal(t, before+2, testutil.ToFloat64(Commands.WithLabelValues("GET", "SUCCESS")))
}

func TestHandler(t *testing.T) {
	SessionsActive.Inc()
	defer SessionsActive.Dec()
	ObserveCommand("SET", "ERR_INVALID_PARAM", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `tablekv_commands_total{command="SET",result="ERR_INVALID_PARAM"}`)
	require.Contains(t, string(body), "tablekv_sessions_active")
	require.Contains(t, string(body), "tablekv_command_seconds_bucket")
}
