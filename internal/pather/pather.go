package pather

import (
	"context"
	"fmt"
	"image"
	"time"

	"jordanella.com/botty-go/internal/config"
	"jordanella.com/botty-go/internal/cv"
	"jordanella.com/botty-go/internal/events"
	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/logging"
	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

// stuckMovesBeforeUnstuck is how many consecutive moves may leave the view
// unchanged before a forced move is issued
const stuckMovesBeforeUnstuck = 2

// defaultDirection is where the unstuck move goes when no node was seen yet
var defaultDirection = screen.AbsPoint{X: 0, Y: 150}

// Vision captures frames and matches landmarks in them
type Vision interface {
	Grab() (*image.RGBA, screen.Converter, error)
	Converter() screen.Converter
	FindTemplateInFrame(frame *image.RGBA, conv screen.Converter, name string, opts ...cv.Option) (cv.Match, bool, error)
}

// Mover moves the character toward a screen position. forceMove walks
// instead of teleporting.
type Mover interface {
	Move(ctx context.Context, target screen.ScreenPoint, forceMove bool) error
}

// NodeResult is the outcome of one node traversal
type NodeResult struct {
	NodeID   int
	Attempts int
	Reached  bool
	Distance float64 // last observed distance, -1 if the node was never seen
	Duration time.Duration
}

// TraverseOption adjusts one traversal
type TraverseOption func(*traverseOptions)

type traverseOptions struct {
	threshold float64
	timeout   time.Duration
	forceMove bool
}

// WithThreshold overrides the landmark threshold
func WithThreshold(t float64) TraverseOption {
	return func(o *traverseOptions) { o.threshold = t }
}

// WithTimeout overrides the per-node timeout
func WithTimeout(d time.Duration) TraverseOption {
	return func(o *traverseOptions) { o.timeout = d }
}

// WithForceMove walks between nodes instead of teleporting
func WithForceMove() TraverseOption {
	return func(o *traverseOptions) { o.forceMove = true }
}

// Pather traverses routes. Each traversal call owns its own attempt and
// distance state.
type Pather struct {
	vision    Vision
	catalog   *Catalog
	paths     map[string][]screen.ScreenPoint
	settings  config.Pather
	humanizer *input.Humanizer
	clock     input.Clock
	logger    *logging.Logger
	publisher events.Publisher
	observer  func(NodeResult)
}

// New creates a pather
func New(vision Vision, catalog *Catalog, settings config.Pather, h *input.Humanizer, logger *logging.Logger) *Pather {
	if catalog == nil {
		catalog = NewCatalog()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pather{
		vision:    vision,
		catalog:   catalog,
		paths:     make(map[string][]screen.ScreenPoint),
		settings:  settings,
		humanizer: h,
		clock:     h.Clock(),
		logger:    logger,
		publisher: events.NopPublisher{},
	}
}

// WithPaths registers the named fixed paths used by TraversePath
func (p *Pather) WithPaths(paths map[string][]screen.ScreenPoint) *Pather {
	for name, pts := range paths {
		p.paths[name] = pts
	}
	return p
}

// WithPublisher publishes node events on pub
func (p *Pather) WithPublisher(pub events.Publisher) *Pather {
	if pub != nil {
		p.publisher = pub
	}
	return p
}

// HasPath reports whether a fixed path with that name is registered
func (p *Pather) HasPath(name string) bool {
	_, ok := p.paths[name]
	return ok
}

// Observe registers a callback for every node result
func (p *Pather) Observe(fn func(NodeResult)) {
	p.observer = fn
}

// Catalog returns the node catalog
func (p *Pather) Catalog() *Catalog {
	return p.catalog
}

// FindAbsNodePos locates a node in frame. A zero threshold uses the node's
// own threshold.
func (p *Pather) FindAbsNodePos(nodeID int, frame *image.RGBA, threshold float64, grayscale bool) (screen.AbsPoint, bool, error) {
	node, ok := p.catalog.Node(nodeID)
	if !ok {
		return screen.AbsPoint{}, false, monitor.NewConfigError("routes", fmt.Sprint(nodeID), "unknown node")
	}
	return p.locate(node, frame, p.vision.Converter(), p.threshold(node, threshold), grayscale)
}

// locate returns the node position from the first landmark found
func (p *Pather) locate(node Node, frame *image.RGBA, conv screen.Converter, threshold float64, grayscale bool) (screen.AbsPoint, bool, error) {
	for _, lm := range node.Landmarks {
		m, ok, err := p.vision.FindTemplateInFrame(frame, conv, lm.Template,
			cv.WithThreshold(threshold), cv.WithGrayscale(grayscale))
		if err != nil {
			return screen.AbsPoint{}, false, err
		}
		if ok {
			ref := conv.ScreenToAbs(m.Center)
			return ref.Add(lm.Offset), true, nil
		}
	}
	return screen.AbsPoint{}, false, nil
}

func (p *Pather) threshold(node Node, override float64) float64 {
	if override > 0 {
		return override
	}
	if node.Threshold > 0 {
		return node.Threshold
	}
	return p.settings.Threshold
}

// TraverseRoute traverses a named route from the catalog
func (p *Pather) TraverseRoute(ctx context.Context, name string, mover Mover, opts ...TraverseOption) (bool, error) {
	route, ok := p.catalog.Route(name)
	if !ok {
		return false, monitor.NewConfigError("routes", name, "unknown route")
	}
	return p.TraverseNodes(ctx, route.NodeIDs, mover, opts...)
}

// TraverseNodes walks to each node in order. It returns false as soon as
// one node cannot be reached; later nodes are not attempted.
func (p *Pather) TraverseNodes(ctx context.Context, nodeIDs []int, mover Mover, opts ...TraverseOption) (bool, error) {
	var o traverseOptions
	for _, opt := range opts {
		opt(&o)
	}

	for i, id := range nodeIDs {
		node, ok := p.catalog.Node(id)
		if !ok {
			return false, monitor.NewConfigError("routes", fmt.Sprint(id), "unknown node")
		}

		start := p.clock.Now()
		res, err := p.traverseNode(ctx, node, mover, o)
		res.Duration = input.Since(p.clock, start)
		p.report(res)

		if err != nil {
			return false, err
		}
		if !res.Reached {
			p.logger.Warnf("Failed to reach node %d (%d/%d) after %d attempts", id, i+1, len(nodeIDs), res.Attempts)
			return false, nil
		}
		p.logger.Debugf("Reached node %d (%d/%d)", id, i+1, len(nodeIDs))
	}
	return true, nil
}

// traverseNode moves toward node until it is close enough. A distance that
// stops decreasing ends the node without another move; only a view that
// stays unchanged starts a new attempt.
func (p *Pather) traverseNode(ctx context.Context, node Node, mover Mover, o traverseOptions) (NodeResult, error) {
	res := NodeResult{NodeID: node.ID, Attempts: 1, Distance: -1}

	timeout := o.timeout
	if timeout <= 0 {
		timeout = node.Timeout
	}
	if timeout <= 0 {
		timeout = p.settings.NodeTimeout
	}
	maxRetries := node.MaxRetries
	if maxRetries <= 0 {
		maxRetries = p.settings.MaxRetries
	}
	threshold := p.threshold(node, o.threshold)

	start := p.clock.Now()
	tracker := NewDistanceTracker(p.settings.CloseEnough)
	change := cv.NewChangeDetector(p.settings.StuckHashDistance, image.Rectangle{})
	lastDirection := defaultDirection
	moved := false
	stuckMoves := 0

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if input.Since(p.clock, start) > timeout {
			p.logger.Warnf("Timeout after %v while traversing to node %d", timeout, node.ID)
			return res, nil
		}

		frame, conv, err := p.vision.Grab()
		if err != nil {
			return res, err
		}

		changed, _, err := change.Changed(frame)
		if err != nil {
			return res, err
		}
		if moved && !changed {
			stuckMoves++
		} else {
			stuckMoves = 0
		}
		moved = false

		if stuckMoves >= stuckMovesBeforeUnstuck {
			if res.Attempts >= maxRetries {
				p.logger.Debugf("Node %d: view unchanged with no retries left", node.ID)
				return res, nil
			}
			res.Attempts++
			p.logger.Debugf("View unchanged after %d moves, forcing a move (attempt %d/%d)", stuckMoves, res.Attempts, maxRetries)
			if err := p.unstuck(ctx, conv, lastDirection, mover); err != nil {
				return res, err
			}
			tracker = NewDistanceTracker(p.settings.CloseEnough)
			stuckMoves = 0
			moved = true
			continue
		}

		pos, found, err := p.locate(node, frame, conv, threshold, node.Grayscale)
		if err != nil {
			return res, err
		}
		if !found {
			p.humanizer.Wait(0.05, 0.1)
			continue
		}

		d := pos.Norm()
		res.Distance = d
		switch tracker.Observe(d) {
		case Arrived:
			res.Reached = true
			return res, nil
		case Stalled:
			// overshoot or plateau outside the radius: moving again would
			// oscillate around a lost target
			p.logger.Debugf("Node %d: distance stopped decreasing at %.1f", node.ID, d)
			return res, nil
		}

		target := conv.ClampScreen(conv.AbsToScreen(pos))
		if err := mover.Move(ctx, target, o.forceMove); err != nil {
			return res, err
		}
		lastDirection = pos
		moved = true
		p.humanizer.Step()
	}
}

// unstuck force-moves roughly toward the last known direction
func (p *Pather) unstuck(ctx context.Context, conv screen.Converter, direction screen.AbsPoint, mover Mover) error {
	target := screen.AbsPoint{
		X: direction.X + p.humanizer.Uniform(50),
		Y: direction.Y + p.humanizer.Uniform(50),
	}
	if err := mover.Move(ctx, conv.ClampScreen(conv.AbsToScreen(target)), true); err != nil {
		return err
	}
	p.humanizer.Step()
	return nil
}

// TraverseNodesFixed moves to each screen point in order without looking
// for landmarks. A point counts as visited once the view changed after the
// move; a point that never changes the view fails the traversal.
func (p *Pather) TraverseNodesFixed(ctx context.Context, path []screen.ScreenPoint, mover Mover) (bool, error) {
	maxRetries := p.settings.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	change := cv.NewChangeDetector(p.settings.StuckHashDistance, image.Rectangle{})
	frame, conv, err := p.vision.Grab()
	if err != nil {
		return false, err
	}
	if _, _, err := change.Changed(frame); err != nil {
		return false, err
	}

	for i, pt := range path {
		visited := false
		for try := 0; try < maxRetries && !visited; try++ {
			if err := ctx.Err(); err != nil {
				return false, err
			}

			target := conv.ClampScreen(screen.ScreenPoint{
				X: pt.X + p.humanizer.Intn(7) - 3,
				Y: pt.Y + p.humanizer.Intn(7) - 3,
			})
			if err := mover.Move(ctx, target, false); err != nil {
				return false, err
			}
			p.humanizer.Step()

			frame, conv, err = p.vision.Grab()
			if err != nil {
				return false, err
			}
			visited, _, err = change.Changed(frame)
			if err != nil {
				return false, err
			}
		}
		if !visited {
			p.logger.Warnf("Stuck at fixed path point %d/%d %v", i+1, len(path), pt)
			return false, nil
		}
	}
	return true, nil
}

// TraversePath follows a named fixed path from the [path] config section
func (p *Pather) TraversePath(ctx context.Context, name string, mover Mover) (bool, error) {
	path, ok := p.paths[name]
	if !ok {
		return false, monitor.NewConfigError("path", name, "unknown path")
	}
	return p.TraverseNodesFixed(ctx, path, mover)
}

// TraverseUntilFound keeps stepping toward step until the node's landmark
// shows up, at most maxSteps moves
func (p *Pather) TraverseUntilFound(ctx context.Context, nodeID int, step screen.ScreenPoint, mover Mover, maxSteps int) (screen.AbsPoint, bool, error) {
	node, ok := p.catalog.Node(nodeID)
	if !ok {
		return screen.AbsPoint{}, false, monitor.NewConfigError("routes", fmt.Sprint(nodeID), "unknown node")
	}
	threshold := p.threshold(node, 0)

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return screen.AbsPoint{}, false, err
		}

		frame, conv, err := p.vision.Grab()
		if err != nil {
			return screen.AbsPoint{}, false, err
		}
		pos, found, err := p.locate(node, frame, conv, threshold, node.Grayscale)
		if err != nil || found {
			return pos, found, err
		}
		if i >= maxSteps {
			return screen.AbsPoint{}, false, nil
		}

		if err := mover.Move(ctx, conv.ClampScreen(step), false); err != nil {
			return screen.AbsPoint{}, false, err
		}
		p.humanizer.Step()
	}
}

func (p *Pather) report(res NodeResult) {
	p.publisher.Publish(events.NewNodeEvent(res.Reached, res.NodeID, res.Attempts, res.Distance))
	if p.observer != nil {
		p.observer(res)
	}
}
