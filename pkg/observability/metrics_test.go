package observability_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/fsmconv"
	"github.com/aretw0/fsmconv/pkg/domain"
	"github.com/aretw0/fsmconv/pkg/observability"
)

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	eng := fsmconv.New(fsmconv.WithLifecycleHooks(m.Hooks()))
	ctx := context.Background()

	_, err := eng.MealyToMoore(ctx, "1 1 0 0\n0 0 1 1")
	require.NoError(t, err)
	_, err = eng.MealyToMoore(ctx, "")
	require.Error(t, err)
	_, err = eng.Convert(ctx, "sideways", "0 0")
	require.Error(t, err)

	out := scrape(t, m)
	assert.Contains(t, out, `fsmconv_conversions_total{direction="mealy-to-moore"} 1`)
	assert.Contains(t, out, `fsmconv_failures_total{direction="mealy-to-moore",kind="empty_input",stage="parse"} 1`)
	assert.Contains(t, out, `fsmconv_failures_total{direction="sideways",kind="unsupported_direction",stage="received"} 1`)
	assert.Contains(t, out, `fsmconv_converted_states_sum{direction="mealy-to-moore"} 3`)
	assert.Contains(t, out, `fsmconv_stage_elapsed_seconds_count{direction="mealy-to-moore",stage="serialize"} 1`)
}

func TestMetrics_NonDomainFailure(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	m.Hooks().OnFailure(context.Background(), &domain.RunEvent{Direction: domain.MooreToMealy, Err: context.Canceled})

	assert.Contains(t, scrape(t, m), `fsmconv_failures_total{direction="moore-to-mealy",kind="internal",stage="unknown"} 1`)
}

func TestMetrics_DefaultRegistry(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.RateLimited.Inc()

	out := scrape(t, m)
	assert.Contains(t, out, "fsmconv_rate_limited_total 1")
	assert.Contains(t, out, "go_goroutines")
}
