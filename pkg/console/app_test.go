package console

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangrchen/actor-runner/pkg/platform"
	"github.com/yangrchen/actor-runner/pkg/types"
)

type fakeGateway struct {
	actors   []types.Actor
	schema   json.RawMessage
	metadata json.RawMessage
	result   types.RunResult
	runErr   error

	tokens   []string
	runInput json.RawMessage
}

func (g *fakeGateway) ListActors(_ context.Context, token string) ([]types.Actor, error) {
	g.tokens = append(g.tokens, token)
	if token == "bad" {
		return nil, platform.NewError(platform.KindEmptyResult, 0, "No actors found.")
	}
	return g.actors, nil
}

func (g *fakeGateway) Schema(_ context.Context, _, _ string) (json.RawMessage, error) {
	return g.schema, nil
}

func (g *fakeGateway) Metadata(_ context.Context, _, _ string) (json.RawMessage, error) {
	return g.metadata, nil
}

func (g *fakeGateway) Run(_ context.Context, _, _ string, input json.RawMessage) (types.RunResult, error) {
	g.runInput = input
	return g.result, g.runErr
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		actors: []types.Actor{{
			ID:          "alice~scraper",
			Name:        "scraper",
			Title:       "<b>Scraper</b>",
			Description: "Scrapes <script>alert(1)</script>pages",
			Username:    "alice",
			FullName:    "alice/scraper",
		}},
		schema:   json.RawMessage(`{"properties":{"url":{"type":"string","title":"URL"}},"required":["url"]}`),
		metadata: json.RawMessage(`{"name":"scraper","stats":{"totalRuns":3}}`),
		result: types.RunResult{
			Success: true,
			Data:    []json.RawMessage{json.RawMessage(`{"title":"A"}`)},
			RunID:   "run1",
		},
	}
}

func TestAppRunAndDownload(t *testing.T) {
	gw := newFakeGateway()
	dir := t.TempDir()
	driver := &stubDriver{
		selectIdx: []int{0, 0, 2, 5, 7},
		inputs:    []string{"https://example.com"},
	}
	var out bytes.Buffer
	app := NewApp(gw, driver, &out, WithExportDir(dir))

	require.NoError(t, app.Run(context.Background(), "tok"))

	assert.Equal(t, []string{"tok"}, gw.tokens)
	assert.JSONEq(t, `{"url":"https://example.com"}`, string(gw.runInput))
	assert.Equal(t, []string{"Scraper (alice/scraper)"}, driver.selectMsgs[1].Options)
	assert.Contains(t, driver.infoMessages, "Scrapes pages")
	assert.Contains(t, driver.infoMessages, "Running alice/scraper...")

	text := out.String()
	assert.Contains(t, text, "Successfully loaded 1 actors")
	assert.Contains(t, text, "Actor executed successfully! Retrieved 1 items")
	assert.Contains(t, text, "Results from alice/scraper [1 items]")

	saved, err := os.ReadFile(filepath.Join(dir, "scraper_results.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"A"}]`, string(saved))
	assert.Equal(t, []json.RawMessage{json.RawMessage(`{"title":"A"}`)}, app.Session().Results)
}

func TestAppRetriesLogin(t *testing.T) {
	gw := newFakeGateway()
	driver := &stubDriver{
		passwords: []string{"good"},
		selectIdx: []int{7},
	}
	var out bytes.Buffer

	require.NoError(t, NewApp(gw, driver, &out).Run(context.Background(), "bad"))

	assert.Equal(t, []string{"bad", "good"}, gw.tokens)
	assert.Contains(t, out.String(), "Error: No actors found.")
	assert.Contains(t, out.String(), "Successfully loaded 1 actors")
}

func TestAppRejectsInvalidInput(t *testing.T) {
	gw := newFakeGateway()
	driver := &stubDriver{inputs: []string{""}}
	var out bytes.Buffer
	app := NewApp(gw, driver, &out)
	app.Login(context.Background(), "tok")
	require.NoError(t, app.Choose(context.Background(), "alice~scraper"))

	require.NoError(t, app.RunActor(context.Background()))

	assert.Nil(t, gw.runInput)
	assert.Contains(t, out.String(), "Error: input does not match the actor's schema")
}

func TestAppRunFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.runErr = platform.NewError(platform.KindRunFailed, 0, "Actor run failed: No additional details")
	driver := &stubDriver{inputs: []string{"https://example.com"}}
	var out bytes.Buffer
	app := NewApp(gw, driver, &out)
	app.Login(context.Background(), "tok")
	require.NoError(t, app.Choose(context.Background(), "alice~scraper"))

	require.NoError(t, app.RunActor(context.Background()))

	assert.Contains(t, out.String(), "Error: Actor run failed: No additional details")
	assert.Empty(t, app.Session().Results)
}

func TestAppShowInfo(t *testing.T) {
	gw := newFakeGateway()
	var out bytes.Buffer
	app := NewApp(gw, &stubDriver{}, &out)

	app.ShowInfo(context.Background())
	assert.Contains(t, out.String(), "Error: Please select an actor and ensure your API key is entered.")

	app.Login(context.Background(), "tok")
	require.NoError(t, app.Choose(context.Background(), "alice~scraper"))
	app.ShowInfo(context.Background())

	assert.Contains(t, out.String(), `"totalRuns": 3`)
	assert.Contains(t, out.String(), "Successfully fetched metadata for scraper")
}

func TestAppDownloadWithoutResults(t *testing.T) {
	var out bytes.Buffer
	app := NewApp(newFakeGateway(), &stubDriver{}, &out)

	app.Download()

	assert.Contains(t, out.String(), "Error: No results to download")
}
