package runner_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangrchen/actor-runner/pkg/platform"
	"github.com/yangrchen/actor-runner/pkg/platform/platformtest"
	"github.com/yangrchen/actor-runner/pkg/runner"
)

const startedRun = `{"data":{"id":"run1","status":"READY","defaultDatasetId":"ds1"}}`

func status(s string) platformtest.Response {
	return platformtest.Response{Status: http.StatusOK, Body: `{"data":{"id":"run1","status":"` + s + `","defaultDatasetId":"ds1"}}`}
}

func newOrchestrator(t *testing.T) (*runner.Orchestrator, *platformtest.Server, *[]time.Duration) {
	t.Helper()
	srv := platformtest.New(t)
	var slept []time.Duration
	o := runner.New(platform.NewClient(srv.URL), runner.WithSleeper(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))
	return o, srv, &slept
}

func TestRunSucceedsAfterPolling(t *testing.T) {
	o, srv, slept := newOrchestrator(t)
	srv.Reply(http.MethodPost, "/acts/alice~scraper/runs", http.StatusCreated, startedRun)
	srv.Sequence(http.MethodGet, "/actor-runs/run1", status("RUNNING"), status("RUNNING"), status("SUCCEEDED"))
	srv.Reply(http.MethodGet, "/datasets/ds1/items", http.StatusOK, `[{"title":"A"},{"title":"B"}]`)

	res, err := o.Run(context.Background(), "tok", "alice~scraper", json.RawMessage(`{"url":"https://example.com"}`))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "run1", res.RunID)
	require.Len(t, res.Data, 2)
	assert.JSONEq(t, `{"title":"A"}`, string(res.Data[0]))
	assert.Equal(t, 3, srv.Count(http.MethodGet, "/actor-runs/run1"))
	assert.Equal(t, []time.Duration{runner.DefaultPollInterval, runner.DefaultPollInterval, runner.DefaultPollInterval}, *slept)
}

func TestRunTimesOut(t *testing.T) {
	o, srv, slept := newOrchestrator(t)
	srv.Reply(http.MethodPost, "/acts/alice~scraper/runs", http.StatusCreated, startedRun)
	srv.Sequence(http.MethodGet, "/actor-runs/run1", status("RUNNING"))

	_, err := o.Run(context.Background(), "tok", "alice~scraper", nil)

	require.Error(t, err)
	assert.True(t, platform.IsKind(err, platform.KindTimeout))
	assert.Equal(t, http.StatusRequestTimeout, platform.StatusOf(err))
	assert.Equal(t, "Actor run timed out after 5m0s", err.Error())
	assert.Equal(t, runner.DefaultMaxPolls, srv.Count(http.MethodGet, "/actor-runs/run1"))
	assert.Len(t, *slept, runner.DefaultMaxPolls)
}

func TestRunFailedStates(t *testing.T) {
	cases := map[string]string{
		"FAILED":    "Actor run failed: No additional details",
		"ABORTED":   "Actor run aborted: No additional details",
		"TIMED-OUT": "Actor run timed-out: No additional details",
	}
	for state, want := range cases {
		t.Run(state, func(t *testing.T) {
			o, srv, _ := newOrchestrator(t)
			srv.Reply(http.MethodPost, "/acts/alice~scraper/runs", http.StatusCreated, startedRun)
			srv.Sequence(http.MethodGet, "/actor-runs/run1", status(state))

			_, err := o.Run(context.Background(), "tok", "alice~scraper", nil)

			assert.True(t, platform.IsKind(err, platform.KindRunFailed))
			assert.Equal(t, http.StatusBadRequest, platform.StatusOf(err))
			assert.EqualError(t, err, want)
		})
	}
}

func TestRunFailedWithStatusMessage(t *testing.T) {
	o, srv, _ := newOrchestrator(t)
	srv.Reply(http.MethodPost, "/acts/alice~scraper/runs", http.StatusCreated, startedRun)
	srv.Reply(http.MethodGet, "/actor-runs/run1", http.StatusOK, `{"data":{"status":"FAILED","statusMessage":"Out of memory"}}`)

	_, err := o.Run(context.Background(), "tok", "alice~scraper", nil)

	assert.EqualError(t, err, "Actor run failed: Out of memory")
}

func TestRunDatasetFailureYieldsEmptyData(t *testing.T) {
	o, srv, _ := newOrchestrator(t)
	srv.Reply(http.MethodPost, "/acts/alice~scraper/runs", http.StatusCreated, startedRun)
	srv.Sequence(http.MethodGet, "/actor-runs/run1", status("SUCCEEDED"))
	srv.Reply(http.MethodGet, "/datasets/ds1/items", http.StatusInternalServerError, `boom`)

	res, err := o.Run(context.Background(), "tok", "alice~scraper", nil)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[],"runId":"run1"}`, string(body))
}

func TestRunStartFallsBackToStore(t *testing.T) {
	o, srv, _ := newOrchestrator(t)
	srv.Reply(http.MethodPost, "/store/acts/apify~web-scraper/runs", http.StatusCreated, startedRun)
	srv.Sequence(http.MethodGet, "/actor-runs/run1", status("SUCCEEDED"))
	srv.Reply(http.MethodGet, "/datasets/ds1/items", http.StatusOK, `[]`)

	res, err := o.Run(context.Background(), "tok", "apify~web-scraper", nil)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{
		"POST /acts/apify~web-scraper/runs",
		"POST /store/acts/apify~web-scraper/runs",
		"GET /actor-runs/run1",
		"GET /datasets/ds1/items",
	}, srv.Calls())
}

func TestRunStartFailures(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		o, srv, _ := newOrchestrator(t)
		srv.Reply(http.MethodPost, "/store/acts/alice~scraper/runs", http.StatusUnauthorized, `denied`)

		_, err := o.Run(context.Background(), "bad", "alice~scraper", nil)

		assert.Equal(t, http.StatusUnauthorized, platform.StatusOf(err))
		assert.EqualError(t, err, "Invalid API token")
	})

	t.Run("not found", func(t *testing.T) {
		o, _, _ := newOrchestrator(t)

		_, err := o.Run(context.Background(), "tok", "alice~missing", nil)

		assert.Equal(t, http.StatusNotFound, platform.StatusOf(err))
		assert.Contains(t, err.Error(), "Actor not found: alice~missing. Make sure the actor exists")
		assert.Contains(t, err.Error(), "Last error: ")
	})

	t.Run("other", func(t *testing.T) {
		o, srv, _ := newOrchestrator(t)
		srv.Reply(http.MethodPost, "/store/acts/alice~scraper/runs", http.StatusPaymentRequired, `quota exceeded`)

		_, err := o.Run(context.Background(), "tok", "alice~scraper", nil)

		assert.Equal(t, http.StatusPaymentRequired, platform.StatusOf(err))
		assert.EqualError(t, err, "Failed to start actor run. quota exceeded")
	})
}

func TestRunPollFailureIsImmediate(t *testing.T) {
	o, srv, _ := newOrchestrator(t)
	srv.Reply(http.MethodPost, "/acts/alice~scraper/runs", http.StatusCreated, startedRun)
	srv.Reply(http.MethodGet, "/actor-runs/run1", http.StatusServiceUnavailable, `busy`)

	_, err := o.Run(context.Background(), "tok", "alice~scraper", nil)

	assert.EqualError(t, err, "Failed to check run status: 503")
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/actor-runs/run1"))
}

func TestRunCeiling(t *testing.T) {
	o := runner.New(platform.NewClient("http://localhost"), runner.WithPollInterval(time.Second), runner.WithMaxPolls(3))
	assert.Equal(t, 3*time.Second, o.Ceiling())
}

func TestStateClassification(t *testing.T) {
	assert.True(t, runner.StateSucceeded.Terminal())
	assert.False(t, runner.StateSucceeded.Failed())
	assert.True(t, runner.StateTimedOut.Failed())
	assert.False(t, runner.StateRunning.Terminal())
	assert.Equal(t, "timed-out", runner.StateTimedOut.Lower())
}
