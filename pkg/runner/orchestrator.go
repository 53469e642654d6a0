// Package runner starts actor runs and waits for them to finish.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yangrchen/actor-runner/pkg/platform"
	"github.com/yangrchen/actor-runner/pkg/types"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxPolls     = 60
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Orchestrator struct {
	client   *platform.Client
	interval time.Duration
	maxPolls int
	sleep    Sleeper
	log      *log.Entry
}

type Option func(*Orchestrator)

func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

func WithMaxPolls(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxPolls = n
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sleep = s
		}
	}
}

func WithLogger(entry *log.Entry) Option {
	return func(o *Orchestrator) {
		if entry != nil {
			o.log = entry
		}
	}
}

func New(client *platform.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		interval: DefaultPollInterval,
		maxPolls: DefaultMaxPolls,
		sleep:    sleepContext,
		log:      log.WithField("component", "runner"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ceiling is the longest the orchestrator waits for a run.
func (o *Orchestrator) Ceiling() time.Duration {
	return o.interval * time.Duration(o.maxPolls)
}

// Run starts the actor with input and polls it until it reaches a terminal
// state or the ceiling passes. A failed status check ends the run at once;
// only the start call falls back between endpoints.
func (o *Orchestrator) Run(ctx context.Context, token, actorID string, input json.RawMessage) (types.RunResult, error) {
	run, err := o.start(ctx, token, actorID, input)
	if err != nil {
		return types.RunResult{}, err
	}
	entry := o.log.WithFields(log.Fields{"actor": actorID, "run": run.ID})
	entry.Info("Actor run started")

	for run.Polls < o.maxPolls {
		if err := o.sleep(ctx, o.interval); err != nil {
			return types.RunResult{}, fmt.Errorf("polling run %s: %w", run.ID, err)
		}

		if err := o.poll(ctx, token, run); err != nil {
			return types.RunResult{}, err
		}
		entry.WithFields(log.Fields{"status": run.State, "poll": run.Polls}).Info("Actor run status")

		switch {
		case run.State == StateSucceeded:
			items := o.datasetItems(ctx, token, run)
			return types.RunResult{Success: true, Data: items, RunID: run.ID}, nil
		case run.State.Failed():
			details := run.StatusMessage
			if details == "" {
				details = "No additional details"
			}
			return types.RunResult{}, platform.NewError(platform.KindRunFailed, http.StatusBadRequest,
				fmt.Sprintf("Actor run %s: %s", run.State.Lower(), details))
		}
	}

	run.State = StateLocalTimeout
	entry.WithField("ceiling", o.Ceiling()).Warn("Gave up waiting for actor run")
	return types.RunResult{}, platform.NewError(platform.KindTimeout, http.StatusRequestTimeout,
		fmt.Sprintf("Actor run timed out after %s", o.Ceiling()))
}

func (o *Orchestrator) start(ctx context.Context, token, actorID string, input json.RawMessage) (*Run, error) {
	if len(input) == 0 || string(input) == "null" {
		input = json.RawMessage("{}")
	}

	var last *platform.Attempt
	for _, root := range platform.Roots {
		attempt := o.client.Post(ctx, token, platform.ActorPath(root, actorID, "/runs"), input)
		if attempt.OK() {
			data := attempt.Data()
			return &Run{
				ID:        data.Get("id").String(),
				ActorID:   actorID,
				DatasetID: data.Get("defaultDatasetId").String(),
				State:     StateStarting,
			}, nil
		}
		last = &attempt
	}

	o.log.WithField("actor", actorID).Error("All attempts to start actor run failed")
	return nil, startFailure(actorID, last)
}

func startFailure(actorID string, last *platform.Attempt) error {
	if last == nil {
		return platform.NewError(platform.KindUpstream, http.StatusInternalServerError, "Failed to start actor run. Unknown error")
	}
	text := last.Text()
	if text == "" {
		text = "Unknown error"
	}
	switch last.Status {
	case http.StatusUnauthorized:
		return platform.NewError(platform.KindAuth, http.StatusUnauthorized, "Invalid API token")
	case http.StatusNotFound:
		return platform.NewError(platform.KindNotFound, http.StatusNotFound, fmt.Sprintf(
			"Actor not found: %s. Make sure the actor exists and is accessible with your API token. Last error: %s", actorID, text))
	}
	kind := platform.KindForStatus(last.Status)
	if last.Err != nil {
		kind = platform.KindNetwork
	}
	return platform.NewError(kind, last.Status, "Failed to start actor run. "+text)
}

func (o *Orchestrator) poll(ctx context.Context, token string, run *Run) error {
	attempt := o.client.Get(ctx, token, "actor-runs/"+run.ID)
	run.Polls++
	if !attempt.OK() {
		return platform.NewError(platform.KindUpstream, http.StatusInternalServerError,
			fmt.Sprintf("Failed to check run status: %d", attempt.Status))
	}
	data := attempt.Data()
	run.State = State(data.Get("status").String())
	run.StatusMessage = data.Get("statusMessage").String()
	if id := data.Get("defaultDatasetId").String(); id != "" {
		run.DatasetID = id
	}
	return nil
}

// datasetItems fetches the run's dataset. Any failure yields an empty list.
func (o *Orchestrator) datasetItems(ctx context.Context, token string, run *Run) []json.RawMessage {
	items := []json.RawMessage{}
	if run.DatasetID == "" {
		return items
	}
	entry := o.log.WithFields(log.Fields{"run": run.ID, "dataset": run.DatasetID})

	attempt := o.client.Get(ctx, token, "datasets/"+run.DatasetID+"/items")
	if !attempt.OK() {
		entry.WithField("status", attempt.Status).Warn("Failed to fetch dataset items")
		return items
	}
	if err := json.Unmarshal(attempt.Body, &items); err != nil {
		entry.WithError(err).Warn("Dataset items are not a JSON array")
		return []json.RawMessage{}
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	entry.WithField("count", len(items)).Info("Retrieved dataset items")
	return items
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
