// Package session holds the state of one interactive console session: the
// token, the actor listing, the current selection and the last run.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/tidwall/gjson"

	"github.com/yangrchen/actor-runner/pkg/types"
)

var (
	ErrMissingToken = errors.New("Please enter your Apify API key")
	ErrNoSelection  = errors.New("Please select an actor and ensure your API key is entered.")
)

type Session struct {
	ID            string
	Token         string
	Actors        []types.Actor
	Selected      *types.Actor
	Schema        json.RawMessage
	Metadata      json.RawMessage
	Results       []json.RawMessage
	Error         string
	Success       string
	Authenticated bool
}

func New() *Session {
	return &Session{ID: xid.New().String()}
}

// Reset drops everything, including the token, and starts a new session id.
func (s *Session) Reset() {
	*s = Session{ID: xid.New().String()}
}

// SetToken records the token for the next listing attempt.
func (s *Session) SetToken(token string) error {
	if strings.TrimSpace(token) == "" {
		s.Error = ErrMissingToken.Error()
		return ErrMissingToken
	}
	s.Token = strings.TrimSpace(token)
	s.clearMessages()
	return nil
}

func (s *Session) Authenticate(actors []types.Actor) {
	s.Actors = actors
	s.Authenticated = true
	s.Success = fmt.Sprintf("Successfully loaded %d actors", len(actors))
}

func (s *Session) AuthenticationFailed(err error) {
	s.Authenticated = false
	s.Fail(err, "Failed to authenticate")
}

// Select makes the actor with id current and clears any previous schema.
func (s *Session) Select(id string) (types.Actor, bool) {
	for i := range s.Actors {
		if s.Actors[i].ID == id {
			actor := s.Actors[i]
			s.Selected = &actor
			s.Schema = nil
			s.Error = ""
			return actor, true
		}
	}
	return types.Actor{}, false
}

func (s *Session) SetSchema(schema json.RawMessage) {
	s.Schema = schema
}

// RequireSelection fails unless both a token and a selected actor are set.
func (s *Session) RequireSelection() error {
	if s.Selected == nil || s.Token == "" {
		s.Error = ErrNoSelection.Error()
		return ErrNoSelection
	}
	return nil
}

func (s *Session) SetMetadata(meta json.RawMessage) {
	s.Metadata = meta
	s.Success = fmt.Sprintf("Successfully fetched metadata for %s", gjson.GetBytes(meta, "name").String())
}

// BeginRun clears the messages and results of the previous run.
func (s *Session) BeginRun() {
	s.clearMessages()
	s.Results = nil
}

func (s *Session) ApplyRun(result types.RunResult) {
	if result.Success && result.Data != nil {
		s.Results = result.Data
		s.Success = fmt.Sprintf("Actor executed successfully! Retrieved %d items", len(result.Data))
		return
	}
	s.Error = "Actor execution completed but no data was returned"
}

// Fail records err as the current error, or fallback when err carries no
// message.
func (s *Session) Fail(err error, fallback string) {
	s.Error = fallback
	if err != nil && err.Error() != "" {
		s.Error = err.Error()
	}
}

func (s *Session) clearMessages() {
	s.Error = ""
	s.Success = ""
}
