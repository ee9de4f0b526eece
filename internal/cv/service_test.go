package cv

import (
	"errors"
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

type memTemplates map[string]*Template

func (m memTemplates) Get(name string) (*Template, TemplateDef, error) {
	t, ok := m[name]
	if !ok {
		return nil, TemplateDef{}, errors.New("not cached")
	}
	return t, TemplateDef{Name: name}, nil
}

type memRegistry struct {
	defs  map[string]TemplateDef
	cache memTemplates
}

func (r *memRegistry) Get(name string) (TemplateDef, bool) {
	d, ok := r.defs[name]
	return d, ok
}

func (r *memRegistry) ImageCache() ImageCacheInterface { return r.cache }

func TestServiceFindAllInFrame(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	frame := noiseFrame(rng, 90, 70)
	patch := noiseFrame(rng, 10, 10)
	paste(frame, patch, image.Point{X: 10, Y: 40})
	paste(frame, patch, image.Point{X: 60, Y: 12})

	reg := &memRegistry{
		defs:  map[string]TemplateDef{"chest": {Name: "chest", Threshold: 0.9}},
		cache: memTemplates{"chest": NewTemplate("chest", patch)},
	}
	conv := screen.NewConverter(90, 70, 1, image.Point{})
	s := NewService(&screen.StaticGrabber{Frame: frame, Conv: conv}, reg)

	all, err := s.FindAllInFrame(frame, conv, "chest", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "chest", all[0].Name)
	positions := []screen.ScreenPoint{all[0].Position, all[1].Position}
	assert.ElementsMatch(t, []screen.ScreenPoint{{X: 10, Y: 40}, {X: 60, Y: 12}}, positions)

	one, err := s.FindAllInFrame(frame, conv, "chest", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	left, err := s.FindAllInFrame(frame, conv, "chest", 0, WithROI(screen.NewROI(0, 30, 40, 40)))
	require.NoError(t, err)
	require.Len(t, left, 1, "search region limits the hits")
	assert.Equal(t, screen.ScreenPoint{X: 10, Y: 40}, left[0].Position)

	m, ok, err := s.FindTemplateInFrame(frame, conv, "chest")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, all[0].Position, m.Position)

	_, err = s.FindAllInFrame(frame, conv, "missing", 0)
	assert.Equal(t, monitor.ErrorConfiguration, monitor.Classify(err))
}
