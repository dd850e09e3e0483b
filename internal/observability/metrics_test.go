package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRecordSignupCountsByOutcome(t *testing.T) {
	before := signupCount(t, OutcomeDuplicate)

	RecordSignup(OutcomeDuplicate)
	RecordSignup(OutcomeDuplicate)

	require.Equal(t, before+2, signupCount(t, OutcomeDuplicate))
}

func TestRecordRosterSize(t *testing.T) {
	RecordRosterSize("Tennis", 3)

	metric := &dto.Metric{}
	require.NoError(t, rosterSizeGauge.WithLabelValues("Tennis").Write(metric))
	require.Equal(t, float64(3), metric.GetGauge().GetValue())
}

func TestInstrumentHandlerObservesRequests(t *testing.T) {
	before := requestSamples(t, "418", "get")

	handler := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/activities", nil))

	require.Equal(t, before+1, requestSamples(t, "418", "get"))
}

func signupCount(t *testing.T, outcome string) float64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, signupCounter.WithLabelValues(outcome).Write(metric))
	return metric.GetCounter().GetValue()
}

func requestSamples(t *testing.T, code, method string) uint64 {
	t.Helper()

	observer, err := requestDuration.GetMetricWithLabelValues(code, method)
	require.NoError(t, err)

	metric := &dto.Metric{}
	require.NoError(t, observer.(interface{ Write(*dto.Metric) error }).Write(metric))
	hist := metric.GetHistogram()
	require.NotNil(t, hist)
	return hist.GetSampleCount()
}
