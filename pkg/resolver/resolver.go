// Package resolver looks actors, their input schemas and metadata up on the
// platform. Each lookup walks a fixed list of endpoint shapes, stops at the
// first success and otherwise reports the last failure it observed.
package resolver

import (
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/yangrchen/actor-runner/pkg/platform"
)

// DefaultFeaturedActor is the public actor offered to every account.
const DefaultFeaturedActor = "apify~web-scraper"

type Resolver struct {
	client   *platform.Client
	featured string
	log      *log.Entry
}

type Option func(*Resolver)

// WithFeaturedActor overrides the public actor added to listings. An empty id
// disables it.
func WithFeaturedActor(actorID string) Option {
	return func(r *Resolver) {
		r.featured = actorID
	}
}

func WithLogger(entry *log.Entry) Option {
	return func(r *Resolver) {
		if entry != nil {
			r.log = entry
		}
	}
}

func New(client *platform.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client:   client,
		featured: DefaultFeaturedActor,
		log:      log.WithField("component", "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type lookup struct {
	subject  string
	notFound string
}

var (
	schemaLookup = lookup{
		subject:  "schema",
		notFound: "No input schema found for this actor, or it's not publicly accessible. The actor itself might exist, but its input schema could not be retrieved.",
	}
	metadataLookup = lookup{
		subject:  "metadata",
		notFound: "Actor not found or does not exist. Please check the actor ID and ensure it's correct.",
	}
)

// exhausted classifies the last failed attempt once every endpoint was tried.
func (l lookup) exhausted(actorID string, last *platform.Attempt) *platform.Error {
	msg := fmt.Sprintf("Unable to fetch %s for actor %q.", l.subject, actorID)
	if last == nil {
		return platform.NewError(platform.KindNetwork, http.StatusInternalServerError,
			msg+" No specific error details available, possibly a network issue.")
	}

	switch last.Status {
	case http.StatusUnauthorized:
		msg = "Invalid API token. Please ensure your token is correct and has the necessary permissions."
	case http.StatusForbidden:
		msg = fmt.Sprintf("Access denied. The actor might be private or you don't have sufficient permissions to access its %s.", l.subject)
	case http.StatusNotFound:
		msg = l.notFound
	default:
		msg += fmt.Sprintf(" Apify responded with status %d.", last.Status)
	}
	msg += " Raw Apify response: " + last.Text()

	kind := platform.KindForStatus(last.Status)
	if last.Err != nil {
		kind = platform.KindNetwork
	}
	return platform.NewError(kind, last.Status, msg)
}
