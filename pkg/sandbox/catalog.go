package sandbox

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog describes the actors a sandbox serves.
type Catalog struct {
	// Tokens accepted as bearer credentials. Empty accepts any token.
	Tokens []string `yaml:"tokens"`
	Actors []Actor  `yaml:"actors"`
}

type Actor struct {
	ID          string `yaml:"id"`
	Username    string `yaml:"username"`
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	// Store actors are only reachable through the public store surface.
	Store bool `yaml:"store"`
	// Schema is served by the direct input-schema endpoint when set.
	Schema   string    `yaml:"schema"`
	Versions []Version `yaml:"versions"`
	// Statuses are reported on successive polls; the last one repeats.
	Statuses      []string `yaml:"statuses"`
	StatusMessage string   `yaml:"status_message"`
	// Dataset is the JSON array a finished run produces.
	Dataset string `yaml:"dataset"`
}

type Version struct {
	Number string `yaml:"number"`
	Schema string `yaml:"schema"`
}

// Key is the "username~name" identifier.
func (a Actor) Key() string {
	return a.Username + "~" + a.Name
}

func LoadCatalog(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(b)
}

func ParseCatalog(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for i, a := range c.Actors {
		if a.Username == "" || a.Name == "" {
			return Catalog{}, fmt.Errorf("actor %d: username and name are required", i)
		}
		if a.Dataset != "" && !json.Valid([]byte(a.Dataset)) {
			return Catalog{}, fmt.Errorf("actor %s: dataset is not valid JSON", a.Key())
		}
		if a.Schema != "" && !json.Valid([]byte(a.Schema)) {
			return Catalog{}, fmt.Errorf("actor %s: schema is not valid JSON", a.Key())
		}
		if c.Actors[i].ID == "" {
			c.Actors[i].ID = a.Key()
		}
	}
	return c, nil
}
