package resolver

import (
	"context"

	"github.com/tidwall/gjson"

	"github.com/yangrchen/actor-runner/pkg/platform"
	"github.com/yangrchen/actor-runner/pkg/types"
)

const noActorsMessage = "No actors found. This might be because you don't have any actors created, or the API token doesn't have the necessary permissions to list them."

// ListActors returns the account's actors plus the featured public actor,
// deduplicated by id. Failing side queries are logged and skipped; only an
// empty result is an error.
func (r *Resolver) ListActors(ctx context.Context, token string) ([]types.Actor, error) {
	var actors []types.Actor
	seen := make(map[string]struct{})
	add := func(actor types.Actor) {
		if _, ok := seen[actor.ID]; ok {
			return
		}
		seen[actor.ID] = struct{}{}
		actors = append(actors, actor)
	}

	owned := r.client.Get(ctx, token, "acts")
	if owned.OK() {
		items := owned.Data().Get("items").Array()
		for _, item := range items {
			add(actorFromJSON(item))
		}
		r.log.WithField("count", len(items)).Info("Fetched user actors")
	} else {
		r.log.WithField("status", owned.Status).Warn("Failed to fetch user actors")
	}

	if r.featured != "" {
		if _, ok := seen[r.featured]; !ok {
			r.addFeatured(ctx, token, add)
		}
	}

	if len(actors) == 0 {
		return nil, platform.NewError(platform.KindEmptyResult, 0, noActorsMessage)
	}
	r.log.WithField("count", len(actors)).Info("Total unique actors available")
	return actors, nil
}

func (r *Resolver) addFeatured(ctx context.Context, token string, add func(types.Actor)) {
	entry := r.log.WithField("actor", r.featured)
	attempt := r.client.Get(ctx, token, platform.ActorPath("store/acts", r.featured, ""))
	if !attempt.OK() {
		entry.WithField("status", attempt.Status).Warn("Failed to fetch details for public store actor")
		return
	}
	data := attempt.Data()
	if !data.IsObject() {
		entry.Warn("Public store actor response carried no data")
		return
	}
	actor := actorFromJSON(data)
	actor.ID = r.featured
	add(actor)
	entry.Info("Added public store actor")
}

func actorFromJSON(item gjson.Result) types.Actor {
	username := item.Get("username").String()
	name := item.Get("name").String()
	return types.Actor{
		ID:          username + "~" + name,
		InternalID:  item.Get("id").String(),
		Name:        name,
		Title:       item.Get("title").String(),
		Description: item.Get("description").String(),
		Username:    username,
		FullName:    username + "/" + name,
	}
}
