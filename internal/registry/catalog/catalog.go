// Package catalog loads MOCK agent definitions from YAML.
//
// The default catalog is embedded in the binary so it is identical across
// restarts. Operators can replace it with a file via SOLVINE_MOCK_CATALOG.
// Entries may carry routing keywords used to pick an agent for queries that
// do not name one.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solvine-ai/solvine/internal/model"
)

//go:embed default.yaml
var defaultCatalog []byte

type file struct {
	Agents []entry `yaml:"agents"`
}

type entry struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Role        string   `yaml:"role"`
	Emoji       string   `yaml:"emoji"`
	Stability   *float64 `yaml:"stability"`
	Keywords    []string `yaml:"keywords"`
}

// Route sends unaddressed queries containing any of Keywords to Agent.
// Keywords are lowercase.
type Route struct {
	Agent    string
	Keywords []string
}

// Catalog is a decoded catalog file. Routes keep file order.
type Catalog struct {
	Agents []model.AgentRecord
	Routes []Route
}

// Default returns the embedded catalog's agents.
func Default() ([]model.AgentRecord, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog's agents from path. An empty path yields the
// default catalog.
func LoadFile(path string) ([]model.AgentRecord, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	return c.Agents, nil
}

// Load reads a full catalog from path, or the embedded one when path is empty.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Decode(defaultCatalog)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Decode(data)
}

// Parse decodes catalog YAML into MOCK records.
func Parse(data []byte) ([]model.AgentRecord, error) {
	c, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return c.Agents, nil
}

// Decode decodes catalog YAML. Names are normalized; every entry must have a
// valid name, a role and a stability in [0, 1]. Blank keywords are dropped.
func Decode(data []byte) (Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Catalog{}, fmt.Errorf("catalog: parse: %w", err)
	}

	seen := make(map[string]bool, len(f.Agents))
	out := Catalog{Agents: make([]model.AgentRecord, 0, len(f.Agents))}
	for i, e := range f.Agents {
		name := model.NormalizeName(e.Name)
		if err := model.ValidateName(name); err != nil {
			return Catalog{}, fmt.Errorf("catalog: agents[%d]: %w", i, err)
		}
		if seen[name] {
			return Catalog{}, fmt.Errorf("catalog: agents[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if e.Role == "" {
			return Catalog{}, fmt.Errorf("catalog: agents[%d] (%s): role is required", i, name)
		}
		if e.Stability == nil {
			return Catalog{}, fmt.Errorf("catalog: agents[%d] (%s): stability is required", i, name)
		}
		if err := model.ValidateStability(*e.Stability); err != nil {
			return Catalog{}, fmt.Errorf("catalog: agents[%d] (%s): %w", i, name, err)
		}
		display := e.DisplayName
		if display == "" {
			display = name
		}
		out.Agents = append(out.Agents, model.AgentRecord{
			Name:        name,
			Tier:        model.TierMock,
			Role:        e.Role,
			Stability:   *e.Stability,
			DisplayName: display,
			Emoji:       e.Emoji,
		})
		if kw := cleanKeywords(e.Keywords); len(kw) > 0 {
			out.Routes = append(out.Routes, Route{Agent: name, Keywords: kw})
		}
	}
	return out, nil
}

func cleanKeywords(in []string) []string {
	var out []string
	for _, k := range in {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}
