package pather

import (
	"context"
	"errors"
	"image"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/botty-go/internal/config"
	"jordanella.com/botty-go/internal/cv"
	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/input/inputtest"
	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

// fakeWorld simulates the game view: landmarks sit at fixed world positions
// and moves shift the player toward the clicked point
type fakeWorld struct {
	mu        sync.Mutex
	conv      screen.Converter
	player    screen.AbsPoint
	landmarks map[string]screen.AbsPoint
	hidden    map[string]bool
	moves     []move
	frozen    bool
	failMove  error
	onMove    func(w *fakeWorld)
}

type move struct {
	target screen.ScreenPoint
	force  bool
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		conv:      screen.NewConverter(200, 160, 1, image.Point{}),
		landmarks: make(map[string]screen.AbsPoint),
		hidden:    make(map[string]bool),
	}
}

func (w *fakeWorld) Grab() (*image.RGBA, screen.Converter, error) {
	w.mu.Lock()
	seed := int64(w.player.X*7919 + w.player.Y*104729)
	w.mu.Unlock()

	rng := rand.New(rand.NewSource(seed))
	frame := image.NewRGBA(image.Rect(0, 0, 200, 160))
	for i := range frame.Pix {
		frame.Pix[i] = byte(rng.Intn(256))
	}
	return frame, w.conv, nil
}

func (w *fakeWorld) Converter() screen.Converter { return w.conv }

func (w *fakeWorld) FindTemplateInFrame(_ *image.RGBA, conv screen.Converter, name string, _ ...cv.Option) (cv.Match, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pos, ok := w.landmarks[name]
	if !ok || w.hidden[name] {
		return cv.Match{}, false, nil
	}
	center := conv.AbsToScreen(pos.Sub(w.player))
	return cv.Match{Name: name, Position: center, Center: center, Score: 0.9}, true, nil
}

func (w *fakeWorld) Move(_ context.Context, target screen.ScreenPoint, force bool) error {
	w.mu.Lock()
	if w.failMove != nil {
		w.mu.Unlock()
		return w.failMove
	}
	w.moves = append(w.moves, move{target: target, force: force})
	if !w.frozen {
		w.player = w.player.Add(w.conv.ScreenToAbs(target))
	}
	hook := w.onMove
	w.mu.Unlock()

	if hook != nil {
		hook(w)
	}
	return nil
}

func (w *fakeWorld) Moves() []move {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]move(nil), w.moves...)
}

func testSettings() config.Pather {
	return config.Pather{
		CloseEnough:       30,
		NodeTimeout:       time.Second,
		MaxRetries:        3,
		StuckHashDistance: 2,
		Threshold:         0.68,
	}
}

func newTestPather(t *testing.T, w *fakeWorld, nodes ...Node) (*Pather, *inputtest.FakeClock) {
	t.Helper()
	catalog := NewCatalog()
	for _, n := range nodes {
		require.NoError(t, catalog.AddNode(n))
	}
	clock := inputtest.NewFakeClock()
	h := input.NewHumanizer(clock, input.Jitter{}, 1)
	return New(w, catalog, testSettings(), h, nil), clock
}

func lineOfNodes(w *fakeWorld, n int) ([]Node, []int) {
	var nodes []Node
	var ids []int
	for i := 1; i <= n; i++ {
		name := "landmark_" + string(rune('a'+i-1))
		w.landmarks[name] = screen.AbsPoint{X: float64(i * 50), Y: 0}
		nodes = append(nodes, Node{ID: 100 + i, Landmarks: []Landmark{{Template: name}}})
		ids = append(ids, 100+i)
	}
	return nodes, ids
}

func TestDistanceTrackerPlateau(t *testing.T) {
	tracker := NewDistanceTracker(30)
	samples := []float64{100, 60, 61, 58}

	stoppedAt := -1
	for i, d := range samples {
		if v := tracker.Observe(d); v != Continue {
			assert.Equal(t, Stalled, v)
			stoppedAt = i
			break
		}
	}
	assert.Equal(t, 2, stoppedAt)
	assert.Equal(t, 61.0, tracker.Last())
}

func TestDistanceTrackerVerdicts(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    []Verdict
	}{
		{"first sample never stalls", []float64{500}, []Verdict{Continue}},
		{"arrival wins over plateau", []float64{100, 20}, []Verdict{Continue, Arrived}},
		{"equal distance is a plateau", []float64{80, 80}, []Verdict{Continue, Stalled}},
		{"overshoot", []float64{90, 50, 120}, []Verdict{Continue, Continue, Stalled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewDistanceTracker(30)
			var got []Verdict
			for _, d := range tt.samples {
				got = append(got, tracker.Observe(d))
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, math.IsInf(NewDistanceTracker(30).Last(), 1))
}

func TestFindAbsNodePos(t *testing.T) {
	w := newFakeWorld()
	w.landmarks["wp"] = screen.AbsPoint{X: 20, Y: 10}
	node := Node{ID: 7, Landmarks: []Landmark{
		{Template: "missing"},
		{Template: "wp", Offset: screen.AbsPoint{X: 5, Y: -5}},
	}}
	p, _ := newTestPather(t, w, node)

	frame, _, err := w.Grab()
	require.NoError(t, err)

	pos, ok, err := p.FindAbsNodePos(7, frame, 0.9, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 25, pos.X, 1)
	assert.InDelta(t, 5, pos.Y, 1)

	_, _, err = p.FindAbsNodePos(99, frame, 0, false)
	assert.Equal(t, monitor.ErrorConfiguration, monitor.Classify(err))
}

func TestTraverseNodesVisitsInOrder(t *testing.T) {
	w := newFakeWorld()
	nodes, ids := lineOfNodes(w, 5)
	p, _ := newTestPather(t, w, nodes...)

	var results []NodeResult
	p.Observe(func(r NodeResult) { results = append(results, r) })

	ok, err := p.TraverseNodes(context.Background(), ids, w)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, ids[i], r.NodeID)
		assert.True(t, r.Reached)
	}
	assert.Len(t, w.Moves(), 5)
	assert.InDelta(t, 250, w.player.X, 2)
}

func TestTraverseNodesStopsAtUnreachableNode(t *testing.T) {
	w := newFakeWorld()
	nodes, ids := lineOfNodes(w, 5)
	w.hidden["landmark_c"] = true
	p, clock := newTestPather(t, w, nodes...)

	var results []NodeResult
	p.Observe(func(r NodeResult) { results = append(results, r) })

	start := clock.Now()
	ok, err := p.TraverseNodes(context.Background(), ids, w)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, results, 3, "node 4 must not be attempted")
	assert.True(t, results[1].Reached)
	assert.False(t, results[2].Reached)
	assert.Equal(t, -1.0, results[2].Distance)
	assert.Len(t, w.Moves(), 2)
	assert.Greater(t, clock.Now().Sub(start), time.Second)
}

func TestTraverseNodeStopsWhenDistanceStopsDecreasing(t *testing.T) {
	tests := []struct {
		name  string
		after []float64 // distance seen after each move
	}{
		{"overshoot", []float64{60, 80}},
		{"plateau", []float64{60, 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			w.landmarks["gate"] = screen.AbsPoint{X: 0, Y: 100}
			w.onMove = func(w *fakeWorld) {
				n := len(w.Moves())
				w.mu.Lock()
				defer w.mu.Unlock()
				if n <= len(tt.after) {
					w.landmarks["gate"] = w.player.Add(screen.AbsPoint{X: 0, Y: tt.after[n-1]})
				}
			}
			p, _ := newTestPather(t, w, Node{ID: 1, Landmarks: []Landmark{{Template: "gate"}}})

			var result NodeResult
			p.Observe(func(r NodeResult) { result = r })

			ok, err := p.TraverseNodes(context.Background(), []int{1}, w)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Len(t, w.Moves(), 2, "no move after the distance stopped decreasing")
			assert.Equal(t, 1, result.Attempts)
			assert.InDelta(t, tt.after[1], result.Distance, 1)
		})
	}
}

func TestTraverseNodeRetriesWhenViewIsStuck(t *testing.T) {
	w := newFakeWorld()
	w.landmarks["far"] = screen.AbsPoint{X: 0, Y: 75}
	w.frozen = true
	// the landmark creeps closer on every regular move while the view
	// itself never changes
	w.onMove = func(w *fakeWorld) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.moves[len(w.moves)-1].force {
			w.landmarks["far"] = w.landmarks["far"].Sub(screen.AbsPoint{X: 0, Y: 10})
		}
	}
	p, _ := newTestPather(t, w, Node{ID: 1, Landmarks: []Landmark{{Template: "far"}}})

	var result NodeResult
	p.Observe(func(r NodeResult) { result = r })

	ok, err := p.TraverseNodes(context.Background(), []int{1}, w)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, result.Attempts)
	assert.InDelta(t, 45, result.Distance, 1)

	forced := 0
	for _, m := range w.Moves() {
		if m.force {
			forced++
		}
	}
	assert.Equal(t, 2, forced, "each retry starts with a forced move")
	assert.Len(t, w.Moves(), 6)
}

func TestTraverseNodesCancellation(t *testing.T) {
	w := newFakeWorld()
	nodes, ids := lineOfNodes(w, 5)
	p, _ := newTestPather(t, w, nodes...)

	ctx, cancel := context.WithCancel(context.Background())
	w.onMove = func(w *fakeWorld) {
		if len(w.Moves()) == 2 {
			cancel()
		}
	}

	ok, err := p.TraverseNodes(ctx, ids, w)
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, monitor.ErrorCancelled, monitor.Classify(err))
	assert.Len(t, w.Moves(), 2)
}

func TestTraverseNodesUnknownNode(t *testing.T) {
	w := newFakeWorld()
	p, _ := newTestPather(t, w)
	_, err := p.TraverseNodes(context.Background(), []int{42}, w)
	assert.Equal(t, monitor.ErrorConfiguration, monitor.Classify(err))

	_, err = p.TraverseRoute(context.Background(), "nowhere", w)
	assert.Equal(t, monitor.ErrorConfiguration, monitor.Classify(err))
}

func TestTraverseNodesFixed(t *testing.T) {
	path := []screen.ScreenPoint{{X: 120, Y: 80}, {X: 140, Y: 60}, {X: 60, Y: 100}, {X: 150, Y: 150}, {X: 10, Y: 10}}

	t.Run("visits every point in order", func(t *testing.T) {
		w := newFakeWorld()
		p, _ := newTestPather(t, w)

		ok, err := p.TraverseNodesFixed(context.Background(), path, w)
		require.NoError(t, err)
		assert.True(t, ok)

		moves := w.Moves()
		require.Len(t, moves, len(path))
		for i, m := range moves {
			assert.InDelta(t, path[i].X, m.target.X, 3)
			assert.InDelta(t, path[i].Y, m.target.Y, 3)
		}
	})

	t.Run("fails at a point that leaves the view unchanged", func(t *testing.T) {
		w := newFakeWorld()
		w.onMove = func(w *fakeWorld) {
			if len(w.Moves()) == 2 {
				w.mu.Lock()
				w.frozen = true
				w.mu.Unlock()
			}
		}
		p, _ := newTestPather(t, w)

		ok, err := p.TraverseNodesFixed(context.Background(), path, w)
		require.NoError(t, err)
		assert.False(t, ok)

		moves := w.Moves()
		assert.Len(t, moves, 2+3, "third point retried, fourth never tried")
		for _, m := range moves[2:] {
			assert.InDelta(t, path[2].X, m.target.X, 3)
		}
	})

	t.Run("device errors propagate", func(t *testing.T) {
		w := newFakeWorld()
		w.failMove = monitor.NewDeviceError("mouse", "move", errors.New("no display"))
		p, _ := newTestPather(t, w)

		ok, err := p.TraverseNodesFixed(context.Background(), path, w)
		assert.False(t, ok)
		assert.Equal(t, monitor.ErrorDevice, monitor.Classify(err))
	})
}

func TestTraversePath(t *testing.T) {
	w := newFakeWorld()
	p, _ := newTestPather(t, w)
	p.WithPaths(map[string][]screen.ScreenPoint{"pindle": {{X: 150, Y: 40}}})

	ok, err := p.TraversePath(context.Background(), "pindle", w)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = p.TraversePath(context.Background(), "unknown", w)
	assert.Equal(t, monitor.ErrorConfiguration, monitor.Classify(err))
}

func TestTraverseUntilFound(t *testing.T) {
	w := newFakeWorld()
	w.landmarks["stairs"] = screen.AbsPoint{X: 300, Y: 0}
	w.hidden["stairs"] = true
	w.onMove = func(w *fakeWorld) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.player.X >= 200 {
			w.hidden["stairs"] = false
		}
	}
	p, _ := newTestPather(t, w, Node{ID: 5, Landmarks: []Landmark{{Template: "stairs"}}})

	step := w.conv.AbsToScreen(screen.AbsPoint{X: 50, Y: 0})
	pos, ok, err := p.TraverseUntilFound(context.Background(), 5, step, w, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 100, pos.X, 2)
	assert.Len(t, w.Moves(), 4)

	w2 := newFakeWorld()
	w2.landmarks["stairs"] = screen.AbsPoint{X: 300, Y: 0}
	w2.hidden["stairs"] = true
	p2, _ := newTestPather(t, w2, Node{ID: 5, Landmarks: []Landmark{{Template: "stairs"}}})
	_, ok, err = p2.TraverseUntilFound(context.Background(), 5, step, w2, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, w2.Moves(), 3)
}

const routesYAML = `
nodes:
  - id: 1600
    threshold: 0.8
    landmarks:
      - template: cs_entrance_0
        offset: [-120, 40]
      - template: cs_entrance_1
        offset: [30, 10]
  - id: 1601
    timeout_s: 2.5
    max_retries: 5
    landmarks:
      - template: cs_entrance_2
        offset: [0, 0]
routes:
  - name: cs_entrance
    nodes: [1600, 1601]
`

func TestLoadRoutes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(routesYAML), 0644))

	c, err := LoadRoutes(path)
	require.NoError(t, err)

	n, ok := c.Node(1600)
	require.True(t, ok)
	assert.Equal(t, 0.8, n.Threshold)
	require.Len(t, n.Landmarks, 2)
	assert.Equal(t, screen.AbsPoint{X: -120, Y: 40}, n.Landmarks[0].Offset)

	n, ok = c.Node(1601)
	require.True(t, ok)
	assert.Equal(t, 2500*time.Millisecond, n.Timeout)
	assert.Equal(t, 5, n.MaxRetries)

	r, ok := c.Route("cs_entrance")
	require.True(t, ok)
	assert.Equal(t, []int{1600, 1601}, r.NodeIDs)

	fromDir, err := LoadRoutesFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"cs_entrance"}, fromDir.RouteNames())
}

type knownTemplates map[string]bool

func (k knownTemplates) Has(name string) bool { return k[name] }

func TestCatalogValidation(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.AddNode(Node{ID: 1, Landmarks: []Landmark{{Template: "a"}}}))
	assert.Error(t, c.AddNode(Node{ID: 1, Landmarks: []Landmark{{Template: "a"}}}))
	assert.Error(t, c.AddNode(Node{ID: 2}))
	assert.Error(t, c.AddNode(Node{ID: 3, Threshold: 1.5, Landmarks: []Landmark{{Template: "a"}}}))

	require.NoError(t, c.AddRoute(Route{Name: "r", NodeIDs: []int{1, 9}}))
	assert.Error(t, c.Validate(nil))

	c2 := NewCatalog()
	require.NoError(t, c2.AddNode(Node{ID: 1, Landmarks: []Landmark{{Template: "a"}}}))
	assert.NoError(t, c2.Validate(knownTemplates{"a": true}))
	assert.Error(t, c2.Validate(knownTemplates{}))

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("routes:\n  - name: x\n    nodes: [1]\n"), 0644))
	_, err := LoadRoutes(bad)
	assert.Equal(t, monitor.ErrorConfiguration, monitor.Classify(err))
}
