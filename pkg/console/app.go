package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	log "github.com/sirupsen/logrus"

	"github.com/yangrchen/actor-runner/pkg/session"
	"github.com/yangrchen/actor-runner/pkg/types"
	"github.com/yangrchen/actor-runner/pkg/utils"
)

// Gateway is the subset of the gateway API the console needs.
type Gateway interface {
	ListActors(ctx context.Context, token string) ([]types.Actor, error)
	Schema(ctx context.Context, token, actorID string) (json.RawMessage, error)
	Metadata(ctx context.Context, token, actorID string) (json.RawMessage, error)
	Run(ctx context.Context, token, actorID string, input json.RawMessage) (types.RunResult, error)
}

const (
	actionSelect     = "Select actor"
	actionInfo       = "Show actor info"
	actionRun        = "Run actor"
	actionTable      = "Show results (table)"
	actionJSON       = "Show results (JSON)"
	actionDownload   = "Download results"
	actionDisconnect = "Disconnect"
	actionQuit       = "Quit"
)

var menu = []string{actionSelect, actionInfo, actionRun, actionTable, actionJSON, actionDownload, actionDisconnect, actionQuit}

type App struct {
	gateway   Gateway
	driver    PromptDriver
	out       io.Writer
	session   *session.Session
	exportDir string
	policy    *bluemonday.Policy
	log       *log.Entry
}

type AppOption func(*App)

// WithExportDir sets where downloads are written. Defaults to the working
// directory.
func WithExportDir(dir string) AppOption {
	return func(a *App) {
		a.exportDir = dir
	}
}

func WithAppLogger(entry *log.Entry) AppOption {
	return func(a *App) {
		if entry != nil {
			a.log = entry
		}
	}
}

func NewApp(gateway Gateway, driver PromptDriver, out io.Writer, opts ...AppOption) *App {
	if out == nil {
		out = os.Stdout
	}
	a := &App{
		gateway:   gateway,
		driver:    driver,
		out:       out,
		session:   session.New(),
		exportDir: ".",
		policy:    bluemonday.StrictPolicy(),
		log:       log.WithField("component", "console"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) Session() *session.Session {
	return a.session
}

// Run drives the interactive loop until the user quits or a prompt is
// aborted. token may be empty, in which case it is asked for.
func (a *App) Run(ctx context.Context, token string) error {
	for {
		if !a.session.Authenticated {
			var err error
			if token == "" {
				token, err = a.driver.Password(ctx, InputConfig{Message: "Apify API token"})
				if err != nil {
					return quitOnAbort(err)
				}
			}
			a.Login(ctx, token)
			token = ""
			if !a.session.Authenticated {
				continue
			}
		}

		idx, err := a.driver.Select(ctx, SelectConfig{Message: a.prompt(), Options: menu})
		if err != nil {
			return quitOnAbort(err)
		}
		if idx < 0 || idx >= len(menu) {
			continue
		}

		switch menu[idx] {
		case actionSelect:
			err = a.SelectActor(ctx)
		case actionInfo:
			a.ShowInfo(ctx)
		case actionRun:
			err = a.RunActor(ctx)
		case actionTable:
			err = a.showResults(RenderTable)
		case actionJSON:
			err = a.showResults(RenderJSON)
		case actionDownload:
			a.Download()
		case actionDisconnect:
			a.session.Reset()
			a.log.Info("Session reset")
		case actionQuit:
			return nil
		}
		if err != nil {
			return quitOnAbort(err)
		}
	}
}

// Login lists the actors visible to token.
func (a *App) Login(ctx context.Context, token string) {
	if err := a.session.SetToken(token); err != nil {
		a.report()
		return
	}
	actors, err := a.gateway.ListActors(ctx, a.session.Token)
	if err != nil {
		a.session.AuthenticationFailed(err)
	} else {
		a.session.Authenticate(actors)
	}
	a.report()
}

// SelectActor asks for an actor and loads its input schema.
func (a *App) SelectActor(ctx context.Context) error {
	actors := a.session.Actors
	if len(actors) == 0 {
		a.session.Fail(nil, "No actors loaded")
		a.report()
		return nil
	}
	options := make([]string, len(actors))
	for i, actor := range actors {
		options[i] = a.actorLabel(actor)
	}
	idx, err := a.driver.Select(ctx, SelectConfig{Message: "Choose an actor", Options: options, PageSize: 15})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(actors) {
		return nil
	}
	return a.Choose(ctx, actors[idx].ID)
}

// Choose selects the actor by id and fetches its schema.
func (a *App) Choose(ctx context.Context, actorID string) error {
	actor, ok := a.session.Select(actorID)
	if !ok {
		return nil
	}
	if actor.Description != "" {
		if err := a.driver.Info(ctx, a.clean(actor.Description)); err != nil {
			return err
		}
	}

	schema, err := a.gateway.Schema(ctx, a.session.Token, actor.ID)
	if err != nil {
		a.session.Fail(err, "Failed to fetch actor schema")
		a.report()
		return nil
	}
	a.session.SetSchema(schema)
	a.log.WithField("actor", actor.ID).Debug("Loaded input schema")
	return nil
}

// ShowInfo fetches and prints the selected actor's metadata.
func (a *App) ShowInfo(ctx context.Context) {
	if err := a.session.RequireSelection(); err != nil {
		a.report()
		return
	}
	a.session.Error = ""
	a.session.Metadata = nil

	meta, err := a.gateway.Metadata(ctx, a.session.Token, a.session.Selected.ID)
	if err != nil {
		a.session.Fail(err, "Failed to fetch actor metadata")
		a.report()
		return
	}
	a.session.SetMetadata(meta)

	var buf bytes.Buffer
	if err := json.Indent(&buf, meta, "", "  "); err == nil {
		fmt.Fprintln(a.out, buf.String())
	}
	a.report()
}

// RunActor fills the selected actor's form, runs it and prints the results.
func (a *App) RunActor(ctx context.Context) error {
	if err := a.session.RequireSelection(); err != nil {
		a.report()
		return nil
	}
	if a.session.Schema == nil {
		a.session.Fail(nil, "No input schema loaded for this actor")
		a.report()
		return nil
	}

	input, err := FillForm(ctx, a.driver, a.session.Schema)
	if err != nil {
		if errors.Is(err, ErrAborted) {
			return err
		}
		a.session.Fail(err, "Invalid input")
		a.report()
		return nil
	}
	if err := ValidateInput(a.session.Schema, input); err != nil {
		if !errors.Is(err, ErrSchemaUnusable) {
			a.session.Fail(err, "Invalid input")
			a.report()
			return nil
		}
		a.log.WithError(err).Warn("Submitting input without schema validation")
	}

	actor := a.session.Selected
	a.session.BeginRun()
	if err := a.driver.Info(ctx, fmt.Sprintf("Running %s...", actor.FullName)); err != nil {
		return err
	}
	result, err := a.gateway.Run(ctx, a.session.Token, actor.ID, input)
	if err != nil {
		a.session.Fail(err, "Failed to execute actor")
		a.report()
		return nil
	}
	a.session.ApplyRun(result)
	a.report()
	if len(a.session.Results) > 0 {
		return a.showResults(RenderTable)
	}
	return nil
}

// Download writes the last results into the export directory.
func (a *App) Download() {
	if a.session.Selected == nil || len(a.session.Results) == 0 {
		a.session.Fail(nil, "No results to download")
		a.report()
		return
	}
	path, err := utils.ExportResults(a.exportDir, a.session.Selected.Name, a.session.Results)
	if err != nil {
		a.session.Fail(err, "Failed to write results")
		a.report()
		return
	}
	a.session.Success = "Saved results to " + path
	a.report()
}

func (a *App) showResults(render func(io.Writer, []json.RawMessage) error) error {
	name := ""
	if a.session.Selected != nil {
		name = a.session.Selected.FullName
	}
	fmt.Fprintf(a.out, "Results from %s [%s]\n", name, Badge(len(a.session.Results)))
	return render(a.out, a.session.Results)
}

func (a *App) prompt() string {
	if a.session.Selected == nil {
		return "What next?"
	}
	return fmt.Sprintf("What next? (%s)", a.session.Selected.FullName)
}

func (a *App) actorLabel(actor types.Actor) string {
	return fmt.Sprintf("%s (%s)", a.clean(actor.DisplayName()), actor.FullName)
}

// clean strips any markup from platform-provided text.
func (a *App) clean(s string) string {
	return strings.TrimSpace(a.policy.Sanitize(s))
}

// report prints and clears the pending status messages.
func (a *App) report() {
	if a.session.Error != "" {
		fmt.Fprintln(a.out, "Error: "+a.session.Error)
	}
	if a.session.Success != "" {
		fmt.Fprintln(a.out, a.session.Success)
	}
	a.session.Error, a.session.Success = "", ""
}

func quitOnAbort(err error) error {
	if errors.Is(err, ErrAborted) {
		return nil
	}
	return err
}
