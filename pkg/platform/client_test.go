package platform_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangrchen/actor-runner/pkg/platform"
	"github.com/yangrchen/actor-runner/pkg/platform/platformtest"
)

func TestClientForwardsTokenAndUnwrapsEnvelope(t *testing.T) {
	srv := platformtest.New(t)
	srv.Reply(http.MethodGet, "/acts/alice~scraper", http.StatusOK, `{"data":{"id":"abc","name":"scraper"}}`)

	client := platform.NewClient(srv.URL)
	attempt := client.Get(context.Background(), "t1", platform.ActorPath("acts", "alice~scraper", ""))

	require.True(t, attempt.OK())
	assert.Equal(t, "abc", attempt.Data().Get("id").String())
	assert.Equal(t, []string{"t1"}, srv.Tokens())
	assert.Equal(t, []string{"GET /acts/alice~scraper"}, srv.Calls())
}

func TestClientRecordsFailureBody(t *testing.T) {
	srv := platformtest.New(t)
	srv.Reply(http.MethodPost, "/acts/a~b/runs", http.StatusForbidden, `nope`)

	attempt := platform.NewClient(srv.URL).Post(context.Background(), "t", "acts/a~b/runs", []byte(`{}`))

	assert.False(t, attempt.OK())
	assert.Equal(t, http.StatusForbidden, attempt.Status)
	assert.Equal(t, "nope", attempt.Text())
	assert.NoError(t, attempt.Err)
}

func TestClientTransportFailureIsStatus500(t *testing.T) {
	srv := platformtest.New(t)
	url := srv.URL
	srv.Close()

	attempt := platform.NewClient(url).Get(context.Background(), "t", "acts")

	assert.False(t, attempt.OK())
	assert.Equal(t, http.StatusInternalServerError, attempt.Status)
	assert.Error(t, attempt.Err)
	assert.NotEmpty(t, attempt.Text())
}

func TestActorPathKeepsTilde(t *testing.T) {
	assert.Equal(t, "store/acts/apify~web-scraper/input-schema", platform.ActorPath("store/acts", "apify~web-scraper", "/input-schema"))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, platform.StatusOf(platform.NewError(platform.KindEmptyResult, 0, "empty")))
	assert.Equal(t, http.StatusRequestTimeout, platform.StatusOf(platform.NewError(platform.KindTimeout, 0, "slow")))
	assert.Equal(t, http.StatusBadGateway, platform.StatusOf(platform.NewError(platform.KindUpstream, http.StatusBadGateway, "bad")))
	assert.Equal(t, http.StatusInternalServerError, platform.StatusOf(assert.AnError))
	assert.True(t, platform.IsKind(platform.NewError(platform.KindAuth, 0, "x"), platform.KindAuth))
	assert.Equal(t, platform.KindAccessDenied, platform.KindForStatus(http.StatusForbidden))
}
