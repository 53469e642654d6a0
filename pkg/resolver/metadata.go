package resolver

import (
	"context"
	"encoding/json"

	"github.com/yangrchen/actor-runner/pkg/platform"
)

// Metadata fetches the actor's metadata from the owned surface, falling back
// to the public store.
func (r *Resolver) Metadata(ctx context.Context, token, actorID string) (json.RawMessage, error) {
	entry := r.log.WithField("actor", actorID)
	var last *platform.Attempt

	for _, root := range platform.Roots {
		attempt := r.client.Get(ctx, token, platform.ActorPath(root, actorID, ""))
		if attempt.OK() {
			entry.WithField("path", attempt.Path).Info("Fetched metadata")
			data := attempt.Data()
			if !data.Exists() {
				return json.RawMessage("null"), nil
			}
			return json.RawMessage(data.Raw), nil
		}
		last = &attempt
	}

	entry.Error("All attempts to fetch metadata failed")
	return nil, metadataLookup.exhausted(actorID, last)
}
