package cv

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

// TemplateRegistryInterface defines interface for template registry access
type TemplateRegistryInterface interface {
	Get(name string) (TemplateDef, bool)
	ImageCache() ImageCacheInterface
}

// ImageCacheInterface defines interface for image cache access
type ImageCacheInterface interface {
	Get(name string) (*Template, TemplateDef, error)
}

type scaledKey struct {
	name  string
	scale float64
}

// Service handles all computer vision operations against the live game view
type Service struct {
	grabber  screen.Grabber
	registry TemplateRegistryInterface
	colors   map[string]ColorRange

	mu        sync.RWMutex
	scaled    map[scaledKey]*Template
	lastFrame *image.RGBA

	pollInterval time.Duration
}

// NewService creates a new CV service
func NewService(grabber screen.Grabber, registry TemplateRegistryInterface) *Service {
	return &Service{
		grabber:      grabber,
		registry:     registry,
		colors:       make(map[string]ColorRange),
		scaled:       make(map[scaledKey]*Template),
		pollInterval: 50 * time.Millisecond,
	}
}

// WithColors registers the named colour ranges landmarks may refer to
func (s *Service) WithColors(colors map[string]ColorRange) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, r := range colors {
		s.colors[name] = r
	}
	return s
}

// Grab captures a fresh frame and the conversion that was in effect for it.
// Frames are never reused across decision cycles.
func (s *Service) Grab() (*image.RGBA, screen.Converter, error) {
	conv := s.grabber.Converter()
	frame, err := s.grabber.Grab()
	if err != nil {
		return nil, conv, err
	}

	s.mu.Lock()
	s.lastFrame = frame
	s.mu.Unlock()
	return frame, conv, nil
}

// LastFrame returns the most recent capture, for debugging
func (s *Service) LastFrame() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFrame
}

// Converter returns the current coordinate conversion
func (s *Service) Converter() screen.Converter {
	return s.grabber.Converter()
}

// FindTemplate grabs a frame and searches it for the named landmark
func (s *Service) FindTemplate(name string, opts ...Option) (Match, bool, error) {
	frame, conv, err := s.Grab()
	if err != nil {
		return Match{}, false, err
	}
	return s.FindTemplateInFrame(frame, conv, name, opts...)
}

// FindTemplateInFrame searches an existing frame for the named landmark
func (s *Service) FindTemplateInFrame(frame *image.RGBA, conv screen.Converter, name string, opts ...Option) (Match, bool, error) {
	frame, tmpl, mo, err := s.prepare(frame, conv, name, opts)
	if err != nil {
		return Match{}, false, err
	}
	return Find(frame, tmpl, mo)
}

// FindAllInFrame returns every non-overlapping occurrence of the named
// landmark above its threshold, best first. maxMatches <= 0 means no limit.
func (s *Service) FindAllInFrame(frame *image.RGBA, conv screen.Converter, name string, maxMatches int, opts ...Option) ([]Match, error) {
	frame, tmpl, mo, err := s.prepare(frame, conv, name, opts)
	if err != nil {
		return nil, err
	}
	return FindAll(frame, tmpl, mo, maxMatches)
}

// prepare resolves the landmark definition and the call options into the
// frame, template and options to match with
func (s *Service) prepare(frame *image.RGBA, conv screen.Converter, name string, opts []Option) (*image.RGBA, *Template, MatchOptions, error) {
	tmpl, def, err := s.Template(name, conv.Scale)
	if err != nil {
		return nil, nil, MatchOptions{}, err
	}

	so := searchOptions{}
	for _, opt := range opts {
		opt(&so)
	}

	mo := MatchOptions{Threshold: def.Threshold, Grayscale: def.Grayscale}
	roi := def.ROI
	if so.threshold != nil {
		mo.Threshold = *so.threshold
	}
	if so.grayscale != nil {
		mo.Grayscale = *so.grayscale
	}
	if so.roi != nil {
		roi = so.roi
	}
	if roi != nil {
		if err := roi.Validate(); err != nil {
			return nil, nil, MatchOptions{}, monitor.NewConfigError("templates", name, err.Error())
		}
		mo.Region = roi.Rect(conv)
	}

	color := so.color
	if color == nil && def.Color != "" {
		s.mu.RLock()
		r, ok := s.colors[def.Color]
		s.mu.RUnlock()
		if !ok {
			return nil, nil, MatchOptions{}, monitor.NewConfigError("colors", def.Color, "unknown colour range")
		}
		color = &r
	}
	if color != nil {
		_, frame = ColorFilter(frame, *color)
		_, filtered := ColorFilter(tmpl.Image, *color)
		tmpl = &Template{Name: tmpl.Name, Image: filtered, Mask: tmpl.Mask}
	}
	return frame, tmpl, mo, nil
}

// FindFirst returns the first of names found in one frame
func (s *Service) FindFirst(frame *image.RGBA, conv screen.Converter, names []string, opts ...Option) (Match, bool, error) {
	for _, name := range names {
		m, ok, err := s.FindTemplateInFrame(frame, conv, name, opts...)
		if err != nil {
			return Match{}, false, err
		}
		if ok {
			return m, true, nil
		}
	}
	return Match{}, false, nil
}

// WaitForTemplate polls fresh frames until the landmark appears, the timeout
// elapses or ctx is cancelled. A timeout is reported as ok == false.
func (s *Service) WaitForTemplate(ctx context.Context, name string, timeout time.Duration, opts ...Option) (Match, bool, error) {
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return Match{}, false, err
		}

		m, ok, err := s.FindTemplate(name, opts...)
		if err != nil || ok {
			return m, ok, err
		}

		if time.Now().After(deadline) {
			return m, false, nil
		}

		select {
		case <-ctx.Done():
			return Match{}, false, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// Template returns the named template resized for the window scale
func (s *Service) Template(name string, scale float64) (*Template, TemplateDef, error) {
	if s.registry == nil || s.registry.ImageCache() == nil {
		return nil, TemplateDef{}, monitor.NewConfigError("templates", name, "no template registry configured")
	}

	def, ok := s.registry.Get(name)
	if !ok {
		return nil, TemplateDef{}, monitor.NewConfigError("templates", name, "template not found in registry")
	}

	key := scaledKey{name: name, scale: scale}
	s.mu.RLock()
	cached, ok := s.scaled[key]
	s.mu.RUnlock()
	if ok {
		return cached, def, nil
	}

	tmpl, _, err := s.registry.ImageCache().Get(name)
	if err != nil {
		return nil, def, &monitor.ConfigError{
			Section: "templates",
			Key:     name,
			Reason:  fmt.Sprintf("failed to load %s", def.Path),
			Cause:   err,
		}
	}

	tmpl = tmpl.Scaled(scale)
	s.mu.Lock()
	s.scaled[key] = tmpl
	s.mu.Unlock()
	return tmpl, def, nil
}

// ClearTemplateCache drops scaled copies, e.g. after the window scale changed
func (s *Service) ClearTemplateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scaled = make(map[scaledKey]*Template)
}
