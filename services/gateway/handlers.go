package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/yangrchen/actor-runner/pkg/config"
	"github.com/yangrchen/actor-runner/pkg/logging"
	"github.com/yangrchen/actor-runner/pkg/platform"
	"github.com/yangrchen/actor-runner/pkg/resolver"
	"github.com/yangrchen/actor-runner/pkg/runner"
	"github.com/yangrchen/actor-runner/pkg/server"
	"github.com/yangrchen/actor-runner/pkg/types"
	"github.com/yangrchen/actor-runner/pkg/utils"
)

const (
	tokenKey = "bearer_token"

	missingTokenMessage   = "Authorization header with Bearer token is required"
	missingActorIDMessage = "Actor ID is required"
)

type gateway struct {
	resolver *resolver.Resolver
	runner   *runner.Orchestrator
	log      *log.Entry
}

type actorQuery struct {
	ActorID string `query:"actorId" validate:"required"`
}

func newGateway(cfg config.Config, logger *log.Logger, opts ...runner.Option) *gateway {
	client := platform.NewClient(cfg.BaseURL,
		platform.WithHTTPClient(platform.NewHTTPClient(cfg.UpstreamTimeout)),
		platform.WithLogger(logging.Component(logger, "platform")),
	)
	runOpts := append([]runner.Option{
		runner.WithPollInterval(cfg.PollInterval),
		runner.WithMaxPolls(cfg.MaxPolls),
		runner.WithLogger(logging.Component(logger, "runner")),
	}, opts...)

	return &gateway{
		resolver: resolver.New(client,
			resolver.WithFeaturedActor(cfg.FeaturedActor),
			resolver.WithLogger(logging.Component(logger, "resolver")),
		),
		runner: runner.New(client, runOpts...),
		log:    logging.Component(logger, "gateway"),
	}
}

func newServer(g *gateway, cfg config.Config) *echo.Echo {
	e := server.New(g.log)
	e.HTTPErrorHandler = errorHandler(g.log)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api", requireBearer)
	api.GET("/get-actor-metadata", g.getActorMetadata)
	api.GET("/get-schema", g.getSchema)
	api.POST("/list-actors", g.listActors)
	api.POST("/run-actor", g.runActor)
	return e
}

// requireBearer rejects requests without a bearer token and stores the token
// for handlers.
func requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := utils.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, missingTokenMessage)
		}
		c.Set(tokenKey, token)
		return next(c)
	}
}

func bearer(c echo.Context) string {
	token, _ := c.Get(tokenKey).(string)
	return token
}

func bindActorID(c echo.Context) (string, error) {
	q := new(actorQuery)
	if err := c.Bind(q); err != nil {
		return "", err
	}
	if err := c.Validate(q); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, missingActorIDMessage)
	}
	return utils.DecodeActorID(q.ActorID), nil
}

func (g *gateway) getActorMetadata(c echo.Context) error {
	actorID, err := bindActorID(c)
	if err != nil {
		return err
	}
	meta, err := g.resolver.Metadata(c.Request().Context(), bearer(c), actorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types.MetadataResponse{Actor: meta})
}

func (g *gateway) getSchema(c echo.Context) error {
	actorID, err := bindActorID(c)
	if err != nil {
		return err
	}
	schema, err := g.resolver.Schema(c.Request().Context(), bearer(c), actorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types.SchemaResponse{Schema: schema})
}

func (g *gateway) listActors(c echo.Context) error {
	actors, err := g.resolver.ListActors(c.Request().Context(), bearer(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types.ActorsResponse{Actors: actors})
}

func (g *gateway) runActor(c echo.Context) error {
	req := new(types.RunRequest)
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, missingActorIDMessage)
	}

	// A started run is polled to the end even if the caller goes away.
	ctx := context.WithoutCancel(c.Request().Context())
	result, err := g.runner.Run(ctx, bearer(c), req.ActorID, req.Input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// errorHandler renders every failure as {"error": message}.
func errorHandler(entry *log.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := platform.StatusOf(err)
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			msg = fmt.Sprint(he.Message)
		}

		fields := log.Fields{"status": status, "path": c.Path()}
		if status >= http.StatusInternalServerError {
			entry.WithFields(fields).WithError(err).Error("Request failed")
		} else {
			entry.WithFields(fields).Debug(msg)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, types.ErrorResponse{Error: msg})
		}
		if err != nil {
			entry.WithError(err).Error("Failed to write error response")
		}
	}
}
