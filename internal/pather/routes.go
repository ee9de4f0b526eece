package pather

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

// routeFile is the YAML layout of a route definition file
type routeFile struct {
	Nodes  []nodeYAML  `yaml:"nodes"`
	Routes []routeYAML `yaml:"routes"`
}

type nodeYAML struct {
	ID         int            `yaml:"id"`
	Threshold  float64        `yaml:"threshold,omitempty"`
	Grayscale  bool           `yaml:"grayscale,omitempty"`
	MaxRetries int            `yaml:"max_retries,omitempty"`
	TimeoutS   float64        `yaml:"timeout_s,omitempty"`
	Landmarks  []landmarkYAML `yaml:"landmarks"`
}

type landmarkYAML struct {
	Template string     `yaml:"template"`
	Offset   [2]float64 `yaml:"offset"`
}

type routeYAML struct {
	Name  string `yaml:"name"`
	Nodes []int  `yaml:"nodes"`
}

// LoadRoutes reads one YAML route file into a new catalog
func LoadRoutes(path string) (*Catalog, error) {
	c := NewCatalog()
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	if err := c.Validate(nil); err != nil {
		return nil, &monitor.ConfigError{Section: "routes", Key: path, Reason: "invalid routes", Cause: err}
	}
	return c, nil
}

// LoadRoutesFromDir reads every .yaml/.yml file in dir into one catalog
func LoadRoutesFromDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &monitor.ConfigError{Section: "routes", Key: dir, Reason: "failed to read directory", Cause: err}
	}

	c := NewCatalog()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := c.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(nil); err != nil {
		return nil, &monitor.ConfigError{Section: "routes", Key: dir, Reason: "invalid routes", Cause: err}
	}
	return c, nil
}

// LoadFile adds the nodes and routes of a YAML file to the catalog
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &monitor.ConfigError{Section: "routes", Key: path, Reason: "failed to read file", Cause: err}
	}

	var file routeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return &monitor.ConfigError{Section: "routes", Key: path, Reason: "failed to parse YAML", Cause: err}
	}

	for i, n := range file.Nodes {
		node := Node{
			ID:         n.ID,
			Threshold:  n.Threshold,
			Grayscale:  n.Grayscale,
			MaxRetries: n.MaxRetries,
			Timeout:    time.Duration(n.TimeoutS * float64(time.Second)),
		}
		for _, lm := range n.Landmarks {
			if lm.Template == "" {
				return monitor.NewConfigError("routes", path, fmt.Sprintf("node %d: landmark without template", n.ID))
			}
			node.Landmarks = append(node.Landmarks, Landmark{
				Template: lm.Template,
				Offset:   screen.AbsPoint{X: lm.Offset[0], Y: lm.Offset[1]},
			})
		}
		if err := c.AddNode(node); err != nil {
			return &monitor.ConfigError{Section: "routes", Key: path, Reason: fmt.Sprintf("node %d", i), Cause: err}
		}
	}

	for _, r := range file.Routes {
		if err := c.AddRoute(Route{Name: r.Name, NodeIDs: r.Nodes}); err != nil {
			return &monitor.ConfigError{Section: "routes", Key: path, Reason: "invalid route", Cause: err}
		}
	}
	return nil
}
