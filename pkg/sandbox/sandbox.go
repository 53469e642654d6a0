// Package sandbox emulates the parts of the actor platform's REST API that
// the gateway uses, backed by an in-memory catalog. Runs advance one scripted
// status per poll.
package sandbox

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/yangrchen/actor-runner/pkg/utils"
)

var defaultStatuses = []string{"RUNNING", "SUCCEEDED"}

type run struct {
	id        string
	actor     *Actor
	datasetID string
	polls     int
}

type Server struct {
	catalog Catalog
	log     *log.Entry

	mu       sync.Mutex
	runs     map[string]*run
	datasets map[string]json.RawMessage
}

func New(catalog Catalog, entry *log.Entry) *Server {
	if entry == nil {
		entry = log.WithField("component", "sandbox")
	}
	return &Server{
		catalog:  catalog,
		log:      entry,
		runs:     make(map[string]*run),
		datasets: make(map[string]json.RawMessage),
	}
}

// Register mounts the API under prefix, e.g. "/v2".
func (s *Server) Register(e *echo.Echo, prefix string) {
	g := e.Group(prefix, s.authenticate)

	g.GET("/acts", s.listActors)
	for _, root := range []struct {
		path  string
		store bool
	}{{"/acts", false}, {"/store/acts", true}} {
		ag := g.Group(root.path+"/:actorId", s.findActor(root.store))
		ag.GET("", s.getActor)
		ag.GET("/input-schema", s.getSchema)
		ag.GET("/versions", s.listVersions)
		ag.GET("/versions/:version/input-schema", s.getVersionSchema)
		ag.POST("/runs", s.startRun)
	}
	g.GET("/actor-runs/:runId", s.getRun)
	g.GET("/datasets/:datasetId/items", s.getDatasetItems)
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func fail(c echo.Context, status int, typ, msg string) error {
	return c.JSON(status, map[string]apiError{"error": {Type: typ, Message: msg}})
}

func data(c echo.Context, status int, v any) error {
	return c.JSON(status, map[string]any{"data": v})
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(s.catalog.Tokens) == 0 {
			return next(c)
		}
		token, ok := utils.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if ok {
			for _, t := range s.catalog.Tokens {
				if t == token {
					return next(c)
				}
			}
		}
		return fail(c, http.StatusUnauthorized, "token-not-valid", "Authentication token is not valid.")
	}
}

const actorKey = "sandbox.actor"

func (s *Server) findActor(store bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := utils.DecodeActorID(c.Param("actorId"))
			for i := range s.catalog.Actors {
				a := &s.catalog.Actors[i]
				if a.Store == store && (a.Key() == id || a.ID == id) {
					c.Set(actorKey, a)
					return next(c)
				}
			}
			return fail(c, http.StatusNotFound, "record-not-found", "Actor was not found")
		}
	}
}

func actorJSON(a *Actor) map[string]any {
	return map[string]any{
		"id":          a.ID,
		"name":        a.Name,
		"username":    a.Username,
		"title":       a.Title,
		"description": a.Description,
	}
}

func (s *Server) listActors(c echo.Context) error {
	items := []map[string]any{}
	for i := range s.catalog.Actors {
		if !s.catalog.Actors[i].Store {
			items = append(items, actorJSON(&s.catalog.Actors[i]))
		}
	}
	return data(c, http.StatusOK, map[string]any{"total": len(items), "items": items})
}

func (s *Server) getActor(c echo.Context) error {
	return data(c, http.StatusOK, actorJSON(c.Get(actorKey).(*Actor)))
}

func (s *Server) getSchema(c echo.Context) error {
	a := c.Get(actorKey).(*Actor)
	if a.Schema == "" {
		return fail(c, http.StatusNotFound, "record-not-found", "Input schema was not found")
	}
	return c.JSONBlob(http.StatusOK, []byte(a.Schema))
}

func (s *Server) listVersions(c echo.Context) error {
	a := c.Get(actorKey).(*Actor)
	items := []map[string]string{}
	for _, v := range a.Versions {
		items = append(items, map[string]string{"versionNumber": v.Number})
	}
	return data(c, http.StatusOK, map[string]any{"total": len(items), "items": items})
}

func (s *Server) getVersionSchema(c echo.Context) error {
	a := c.Get(actorKey).(*Actor)
	for _, v := range a.Versions {
		if v.Number == c.Param("version") && v.Schema != "" {
			return c.JSONBlob(http.StatusOK, []byte(v.Schema))
		}
	}
	return fail(c, http.StatusNotFound, "record-not-found", "Version was not found")
}

func (s *Server) startRun(c echo.Context) error {
	a := c.Get(actorKey).(*Actor)

	var input json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&input); err != nil {
		return fail(c, http.StatusBadRequest, "invalid-input", "Input is not valid JSON")
	}

	r := &run{id: xid.New().String(), actor: a, datasetID: xid.New().String()}
	dataset := json.RawMessage("[]")
	if strings.TrimSpace(a.Dataset) != "" {
		dataset = json.RawMessage(a.Dataset)
	}

	s.mu.Lock()
	s.runs[r.id] = r
	s.datasets[r.datasetID] = dataset
	s.mu.Unlock()

	s.log.WithFields(log.Fields{"actor": a.Key(), "run": r.id}).Info("Run started")
	return data(c, http.StatusCreated, map[string]any{
		"id":               r.id,
		"actId":            a.ID,
		"status":           "READY",
		"defaultDatasetId": r.datasetID,
	})
}

func (s *Server) getRun(c echo.Context) error {
	s.mu.Lock()
	r, ok := s.runs[c.Param("runId")]
	var status string
	if ok {
		statuses := r.actor.Statuses
		if len(statuses) == 0 {
			statuses = defaultStatuses
		}
		status = statuses[min(r.polls, len(statuses)-1)]
		r.polls++
	}
	s.mu.Unlock()

	if !ok {
		return fail(c, http.StatusNotFound, "record-not-found", "Actor run was not found")
	}
	body := map[string]any{
		"id":               r.id,
		"status":           status,
		"defaultDatasetId": r.datasetID,
	}
	if r.actor.StatusMessage != "" {
		body["statusMessage"] = r.actor.StatusMessage
	}
	return data(c, http.StatusOK, body)
}

func (s *Server) getDatasetItems(c echo.Context) error {
	s.mu.Lock()
	items, ok := s.datasets[c.Param("datasetId")]
	s.mu.Unlock()
	if !ok {
		return fail(c, http.StatusNotFound, "record-not-found", "Dataset was not found")
	}
	return c.JSONBlob(http.StatusOK, items)
}
