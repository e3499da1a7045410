package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gridlands/gridlands/internal/game/rules"
)

// yamlObjectFile is the top-level YAML structure for world-object files.
type yamlObjectFile struct {
	Objects []yamlObject `yaml:"objects"`
}

// yamlObject is the YAML representation of one world object.
type yamlObject struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
}

// LoadObjectsFromFile reads and validates a single world-object YAML file.
//
// Precondition: path must point to a valid YAML object file.
// Postcondition: Returns validated objects or a non-nil error.
func LoadObjectsFromFile(path string, width, height int) ([]WorldObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading object file %s: %w", path, err)
	}
	return LoadObjectsFromBytes(data, width, height)
}

// LoadObjectsFromBytes parses and validates world objects from YAML bytes.
//
// Postcondition: Every returned object has a unique non-empty ID, a non-empty
// type, and an in-bounds position for the width x height grid.
func LoadObjectsFromBytes(data []byte, width, height int) ([]WorldObject, error) {
	var file yamlObjectFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing object YAML: %w", err)
	}

	seen := make(map[string]bool, len(file.Objects))
	objects := make([]WorldObject, 0, len(file.Objects))
	for _, yo := range file.Objects {
		if yo.ID == "" {
			return nil, fmt.Errorf("object with type %q has empty id", yo.Type)
		}
		if seen[yo.ID] {
			return nil, fmt.Errorf("duplicate object id %q", yo.ID)
		}
		if yo.Type == "" {
			return nil, fmt.Errorf("object %q has empty type", yo.ID)
		}
		if !rules.InBounds(yo.X, yo.Y, width, height) {
			return nil, fmt.Errorf("object %q position (%d,%d) outside %dx%d grid",
				yo.ID, yo.X, yo.Y, width, height)
		}
		seen[yo.ID] = true
		objects = append(objects, WorldObject{
			ID:       yo.ID,
			Type:     yo.Type,
			Position: Position{X: yo.X, Y: yo.Y},
		})
	}
	return objects, nil
}

// LoadObjectsFromDir loads all YAML files in a directory as world objects.
// A missing directory is not an error; the world simply starts empty.
//
// Postcondition: Returns all validated objects or the first error
// encountered.
func LoadObjectsFromDir(dir string, width, height int) ([]WorldObject, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading object directory %s: %w", dir, err)
	}

	ids := make(map[string]bool)
	var objects []WorldObject
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		objs, err := LoadObjectsFromFile(filepath.Join(dir, name), width, height)
		if err != nil {
			return nil, fmt.Errorf("loading objects from %s: %w", name, err)
		}
		for _, obj := range objs {
			if ids[obj.ID] {
				return nil, fmt.Errorf("duplicate object id %q in %s", obj.ID, name)
			}
			ids[obj.ID] = true
		}
		objects = append(objects, objs...)
	}
	return objects, nil
}
