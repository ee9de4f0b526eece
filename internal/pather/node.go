// Package pather locates route nodes from on-screen landmarks and drives the
// character along routes of nodes or fixed screen paths.
package pather

import (
	"fmt"
	"sort"
	"time"

	"jordanella.com/botty-go/internal/screen"
)

// Landmark is a template whose match position, shifted by Offset, gives the
// absolute position of a node
type Landmark struct {
	Template string
	Offset   screen.AbsPoint
}

// Node is one waypoint of a route. Zero values fall back to the pather
// defaults.
type Node struct {
	ID         int
	Landmarks  []Landmark
	Threshold  float64
	Grayscale  bool
	MaxRetries int
	Timeout    time.Duration
}

// Route is an ordered list of node ids
type Route struct {
	Name    string
	NodeIDs []int
}

// TemplateChecker reports whether a template name is known
type TemplateChecker interface {
	Has(name string) bool
}

// Catalog holds the node and route definitions. It is read-only once loaded.
type Catalog struct {
	nodes  map[int]Node
	routes map[string]Route
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		nodes:  make(map[int]Node),
		routes: make(map[string]Route),
	}
}

// AddNode registers a node, rejecting duplicates
func (c *Catalog) AddNode(n Node) error {
	if _, exists := c.nodes[n.ID]; exists {
		return fmt.Errorf("duplicate node %d", n.ID)
	}
	if len(n.Landmarks) == 0 {
		return fmt.Errorf("node %d has no landmarks", n.ID)
	}
	if n.Threshold < 0 || n.Threshold > 1 {
		return fmt.Errorf("node %d: threshold %v outside [0, 1]", n.ID, n.Threshold)
	}
	c.nodes[n.ID] = n
	return nil
}

// AddRoute registers a route, rejecting duplicates
func (c *Catalog) AddRoute(r Route) error {
	if r.Name == "" {
		return fmt.Errorf("route without name")
	}
	if _, exists := c.routes[r.Name]; exists {
		return fmt.Errorf("duplicate route %q", r.Name)
	}
	if len(r.NodeIDs) == 0 {
		return fmt.Errorf("route %q has no nodes", r.Name)
	}
	c.routes[r.Name] = r
	return nil
}

// Node returns a node by id
func (c *Catalog) Node(id int) (Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Route returns a route by name
func (c *Catalog) Route(name string) (Route, bool) {
	r, ok := c.routes[name]
	return r, ok
}

// RouteNames lists the route names in sorted order
func (c *Catalog) RouteNames() []string {
	names := make([]string, 0, len(c.routes))
	for name := range c.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that routes only reference known nodes and, when
// templates is not nil, that every landmark template exists
func (c *Catalog) Validate(templates TemplateChecker) error {
	for _, name := range c.RouteNames() {
		for _, id := range c.routes[name].NodeIDs {
			if _, ok := c.nodes[id]; !ok {
				return fmt.Errorf("route %q references unknown node %d", name, id)
			}
		}
	}
	if templates == nil {
		return nil
	}

	ids := make([]int, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		for _, lm := range c.nodes[id].Landmarks {
			if !templates.Has(lm.Template) {
				return fmt.Errorf("node %d references unknown template %q", id, lm.Template)
			}
		}
	}
	return nil
}
