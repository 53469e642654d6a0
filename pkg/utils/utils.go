package utils

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const bearerPrefix = "Bearer "

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

// DecodeActorID undoes the extra percent-encoding the UI applies to actor ids.
// Values that are not valid escapes are returned unchanged.
func DecodeActorID(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ResultsFilename is the download name for a run's dataset.
func ResultsFilename(actorName string) string {
	return strings.ToLower(nonAlnum.ReplaceAllString(actorName, "_")) + "_results.json"
}

// ExportResults writes results as indented JSON into dir and returns the path
// of the created file.
func ExportResults(dir, actorName string, results []json.RawMessage) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}

	if results == nil {
		results = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	dst := filepath.Join(dir, ResultsFilename(actorName))
	destination, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer destination.Close()

	if _, err := destination.Write(data); err != nil {
		return "", err
	}
	return dst, nil
}
