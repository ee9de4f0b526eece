package templates

import (
	"fmt"
	"sync"

	"jordanella.com/botty-go/internal/cv"
)

// cachedTemplate pairs a definition with its lazily decoded image
type cachedTemplate struct {
	def         cv.TemplateDef
	mu          sync.RWMutex
	tmpl        *cv.Template
	preload     bool
	unloadAfter bool
	loads       int
}

// ImageCache decodes template images once and shares them. Decoded
// templates are immutable, so concurrent readers need no further locking.
type ImageCache struct {
	templates map[string]*cachedTemplate
	mu        sync.RWMutex
	stats     CacheStats
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits        int64
	Misses      int64
	Loads       int64
	Unloads     int64
	PreloadFail int64
}

// NewImageCache creates a new image cache
func NewImageCache() *ImageCache {
	return &ImageCache{
		templates: make(map[string]*cachedTemplate),
	}
}

// Register adds a definition, decoding it immediately when preload is set
func (ic *ImageCache) Register(def cv.TemplateDef, preload, unloadAfter bool) error {
	cached := &cachedTemplate{def: def, preload: preload, unloadAfter: unloadAfter}

	ic.mu.Lock()
	ic.templates[def.Name] = cached
	ic.mu.Unlock()

	if !preload {
		return nil
	}
	if _, err := cached.getOrLoad(); err != nil {
		ic.count(func(s *CacheStats) { s.PreloadFail++ })
		return fmt.Errorf("failed to preload template %s: %w", def.Name, err)
	}
	ic.count(func(s *CacheStats) { s.Loads++ })
	return nil
}

// Get returns the decoded template, loading it on first use
func (ic *ImageCache) Get(name string) (*cv.Template, cv.TemplateDef, error) {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return nil, cv.TemplateDef{}, fmt.Errorf("template '%s' not found in cache", name)
	}

	hit := cached.isLoaded()
	tmpl, err := cached.getOrLoad()
	if err != nil {
		return nil, cached.def, err
	}

	ic.count(func(s *CacheStats) {
		if hit {
			s.Hits++
		} else {
			s.Misses++
			s.Loads++
		}
	})
	return tmpl, cached.def, nil
}

// Release drops the decoded image of a template marked unload_after
func (ic *ImageCache) Release(name string) error {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template '%s' not found in cache", name)
	}
	if cached.unloadAfter && cached.unload() {
		ic.count(func(s *CacheStats) { s.Unloads++ })
	}
	return nil
}

// PreloadAll loads all templates marked for preloading
func (ic *ImageCache) PreloadAll() error {
	ic.mu.RLock()
	pending := make([]*cachedTemplate, 0, len(ic.templates))
	for _, t := range ic.templates {
		if t.preload {
			pending = append(pending, t)
		}
	}
	ic.mu.RUnlock()

	var errs []error
	for _, cached := range pending {
		if _, err := cached.getOrLoad(); err != nil {
			errs = append(errs, fmt.Errorf("template %s: %w", cached.def.Name, err))
			ic.count(func(s *CacheStats) { s.PreloadFail++ })
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to preload %d templates: %w", len(errs), errs[0])
	}
	return nil
}

// UnloadAll drops every decoded image
func (ic *ImageCache) UnloadAll() {
	ic.mu.RLock()
	all := make([]*cachedTemplate, 0, len(ic.templates))
	for _, t := range ic.templates {
		all = append(all, t)
	}
	ic.mu.RUnlock()

	for _, cached := range all {
		if cached.unload() {
			ic.count(func(s *CacheStats) { s.Unloads++ })
		}
	}
}

// Stats returns cache statistics
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

func (ic *ImageCache) count(update func(*CacheStats)) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	update(&ic.stats)
}

func (ct *cachedTemplate) isLoaded() bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.tmpl != nil
}

func (ct *cachedTemplate) getOrLoad() (*cv.Template, error) {
	ct.mu.RLock()
	if ct.tmpl != nil {
		defer ct.mu.RUnlock()
		return ct.tmpl, nil
	}
	ct.mu.RUnlock()

	ct.mu.Lock()
	defer ct.mu.Unlock()

	// double-check after acquiring the write lock
	if ct.tmpl != nil {
		return ct.tmpl, nil
	}

	tmpl, err := cv.LoadTemplate(ct.def.Name, ct.def.Path)
	if err != nil {
		return nil, err
	}
	ct.tmpl = tmpl
	ct.loads++
	return tmpl, nil
}

func (ct *cachedTemplate) unload() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.tmpl == nil {
		return false
	}
	ct.tmpl = nil
	return true
}
