package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yangrchen/actor-runner/pkg/platform"
)

const emptySchemaMessage = "No valid input schema found for this actor."

// Schema fetches the actor's input schema. The direct endpoints are tried
// first, then the schema of the latest listed version.
func (r *Resolver) Schema(ctx context.Context, token, actorID string) (json.RawMessage, error) {
	entry := r.log.WithField("actor", actorID)
	var last *platform.Attempt

	for _, root := range platform.Roots {
		attempt := r.client.Get(ctx, token, platform.ActorPath(root, actorID, "/input-schema"))
		if attempt.OK() {
			entry.WithField("path", attempt.Path).Info("Fetched schema")
			return decodeSchema(attempt.Body)
		}
		last = &attempt
	}

	entry.Info("Direct schema fetch failed, trying latest version")
	path, failure := r.latestVersionSchemaPath(ctx, token, actorID)
	if failure != nil {
		last = failure
	}
	if path != "" {
		attempt := r.client.Get(ctx, token, path)
		if attempt.OK() {
			entry.WithField("path", path).Info("Fetched schema from latest version")
			return decodeSchema(attempt.Body)
		}
		last = &attempt
	} else {
		entry.Warn("Could not determine latest version schema path")
	}

	entry.Error("All attempts to fetch schema failed")
	return nil, schemaLookup.exhausted(actorID, last)
}

// latestVersionSchemaPath lists versions from the owned surface, else the
// store, and returns the input-schema path of the latest one. The second
// return value is the last failed listing, if any.
func (r *Resolver) latestVersionSchemaPath(ctx context.Context, token, actorID string) (string, *platform.Attempt) {
	var last *platform.Attempt
	for _, root := range platform.Roots {
		attempt := r.client.Get(ctx, token, platform.ActorPath(root, actorID, "/versions"))
		if !attempt.OK() {
			last = &attempt
			continue
		}

		var versions []string
		for _, item := range attempt.Data().Get("items").Array() {
			if v := item.Get("versionNumber").String(); v != "" {
				versions = append(versions, v)
			}
		}
		if len(versions) == 0 {
			r.log.WithField("path", attempt.Path).Warn("No versions found")
			continue
		}

		latest := LatestVersion(versions)
		r.log.WithField("version", latest).Info("Found latest version")
		return platform.ActorPath(root, actorID, "/versions/"+url.PathEscape(latest)+"/input-schema"), last
	}
	return "", last
}

// LatestVersion picks the highest version number. Dotted numbers compare
// segment by segment as integers; anything else compares as plain strings.
func LatestVersion(versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if newerVersion(v, latest) {
			latest = v
		}
	}
	return latest
}

func newerVersion(a, b string) bool {
	as, aok := numericSegments(a)
	bs, bok := numericSegments(b)
	if !aok || !bok {
		return a > b
	}
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y int
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if x != y {
			return x > y
		}
	}
	return false
}

func numericSegments(v string) ([]int, bool) {
	parts := strings.Split(v, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func decodeSchema(body []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(body) {
		return nil, platform.NewError(platform.KindUpstream, http.StatusInternalServerError, "Failed to decode input schema: response is not valid JSON.")
	}
	doc := gjson.ParseBytes(body)
	if data := doc.Get("data"); data.IsObject() && len(doc.Map()) == 1 {
		doc = data
	}
	if !doc.IsObject() || len(doc.Map()) == 0 {
		return nil, platform.NewError(platform.KindEmptyResult, 0, emptySchemaMessage)
	}
	return json.RawMessage(doc.Raw), nil
}
