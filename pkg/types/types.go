package types

import "encoding/json"

// Actor is one entry of an actor listing. ID is the "owner~name" identifier
// used for every upstream call; InternalID is the platform's opaque id.
type Actor struct {
	ID          string `json:"id"`
	InternalID  string `json:"internalId"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Username    string `json:"username"`
	FullName    string `json:"fullName"`
}

// DisplayName is the title when the actor has one, otherwise its name.
func (a Actor) DisplayName() string {
	if a.Title != "" {
		return a.Title
	}
	return a.Name
}

type RunRequest struct {
	ActorID string          `json:"actorId" validate:"required"`
	Input   json.RawMessage `json:"input,omitempty"`
}

// RunResult is produced once per run invocation. A successful result always
// carries Data, possibly empty.
type RunResult struct {
	Success bool              `json:"success"`
	Data    []json.RawMessage `json:"data"`
	Error   string            `json:"error,omitempty"`
	RunID   string            `json:"runId,omitempty"`
}

type ActorsResponse struct {
	Actors []Actor `json:"actors"`
}

type SchemaResponse struct {
	Schema json.RawMessage `json:"schema"`
}

type MetadataResponse struct {
	Actor json.RawMessage `json:"actor"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
