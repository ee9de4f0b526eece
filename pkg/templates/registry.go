package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"jordanella.com/botty-go/internal/cv"
	"jordanella.com/botty-go/internal/logging"
	"jordanella.com/botty-go/internal/screen"
)

// DefaultThreshold applies to landmarks that do not set one
const DefaultThreshold = 0.68

// TemplateRegistry manages the landmark catalogue loaded from YAML files and
// from plain PNG folders
type TemplateRegistry struct {
	mu         sync.RWMutex
	templates  map[string]cv.TemplateDef
	basePath   string
	imageCache *ImageCache
	logger     *logging.Logger
}

// TemplateDefinition represents a landmark in the YAML file
type TemplateDefinition struct {
	Name        string  `yaml:"name"`
	Path        string  `yaml:"path"`
	Threshold   float64 `yaml:"threshold"`
	ROI         *ROIDef `yaml:"roi,omitempty"`
	Grayscale   bool    `yaml:"grayscale,omitempty"`
	Color       string  `yaml:"color,omitempty"`
	Preload     bool    `yaml:"preload,omitempty"`
	UnloadAfter bool    `yaml:"unload_after,omitempty"`
}

// ROIDef represents a design-space rectangle in the YAML file
type ROIDef struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// TemplateFile represents the structure of a template YAML file
type TemplateFile struct {
	Templates []TemplateDefinition `yaml:"templates"`
}

// NewTemplateRegistry creates a registry. basePath is the root directory of
// the template images.
func NewTemplateRegistry(basePath string, logger *logging.Logger) *TemplateRegistry {
	if logger == nil {
		logger = logging.Discard()
	}
	return &TemplateRegistry{
		templates:  make(map[string]cv.TemplateDef),
		basePath:   basePath,
		imageCache: NewImageCache(),
		logger:     logger.Named("Templates"),
	}
}

// LoadFromFile loads landmark definitions from a YAML file
func (tr *TemplateRegistry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", filePath, err)
	}

	var templateFile TemplateFile
	if err := yaml.Unmarshal(data, &templateFile); err != nil {
		return fmt.Errorf("failed to unmarshal template YAML %s: %w", filePath, err)
	}

	defs := make([]cv.TemplateDef, 0, len(templateFile.Templates))
	for i, def := range templateFile.Templates {
		if def.Name == "" {
			return fmt.Errorf("template %d: name cannot be empty", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("template %d (%s): path cannot be empty", i+1, def.Name)
		}
		if def.Threshold < 0 || def.Threshold > 1 {
			return fmt.Errorf("template %s: threshold %.2f outside [0,1]", def.Name, def.Threshold)
		}

		td := cv.TemplateDef{
			Name:      def.Name,
			Path:      filepath.Join(tr.basePath, def.Path),
			Threshold: def.Threshold,
			Grayscale: def.Grayscale,
			Color:     def.Color,
		}
		if td.Threshold == 0 {
			td.Threshold = DefaultThreshold
		}
		if def.ROI != nil {
			roi := screen.NewROI(def.ROI.X, def.ROI.Y, def.ROI.W, def.ROI.H)
			if err := roi.Validate(); err != nil {
				return fmt.Errorf("template %s: %w", def.Name, err)
			}
			td.ROI = &roi
		}
		defs = append(defs, td)

		if err := tr.imageCache.Register(td, def.Preload, def.UnloadAfter); err != nil {
			// the image can still be loaded on demand
			tr.logger.Warnf("%v", err)
		}
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, td := range defs {
		tr.templates[td.Name] = td
	}
	tr.logger.Debugf("loaded %d templates from %s", len(defs), filePath)
	return nil
}

// LoadFromDirectory loads every YAML file in a directory
func (tr *TemplateRegistry) LoadFromDirectory(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read template directory %s: %w", dirPath, err)
	}

	var loadErrors []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := tr.LoadFromFile(filepath.Join(dirPath, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("file %s: %w", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d template files (first error): %w", len(loadErrors), loadErrors[0])
	}
	return nil
}

// RegisterImages walks dir and registers every PNG under its lower-case base
// name with the default threshold. Existing YAML definitions win.
func (tr *TemplateRegistry) RegisterImages(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != ".png" {
			return nil
		}

		name := strings.ToLower(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
		if tr.Has(name) {
			return nil
		}
		if err := tr.Register(cv.TemplateDef{Name: name, Path: path, Threshold: DefaultThreshold}); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to scan template images in %s: %w", dir, err)
	}
	return count, nil
}

// Get retrieves a landmark definition by name
func (tr *TemplateRegistry) Get(name string) (cv.TemplateDef, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	def, ok := tr.templates[name]
	return def, ok
}

// Register adds a landmark programmatically
func (tr *TemplateRegistry) Register(def cv.TemplateDef) error {
	if def.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	if def.Threshold == 0 {
		def.Threshold = DefaultThreshold
	}

	tr.mu.Lock()
	tr.templates[def.Name] = def
	tr.mu.Unlock()

	return tr.imageCache.Register(def, false, false)
}

// Has checks if a landmark exists in the registry
func (tr *TemplateRegistry) Has(name string) bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	_, ok := tr.templates[name]
	return ok
}

// List returns all landmark names, sorted
func (tr *TemplateRegistry) List() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	names := make([]string, 0, len(tr.templates))
	for name := range tr.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of landmarks in the registry
func (tr *TemplateRegistry) Count() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.templates)
}

// Require fails with the first name that is not registered
func (tr *TemplateRegistry) Require(names ...string) error {
	for _, name := range names {
		if !tr.Has(name) {
			return fmt.Errorf("template %q is not registered", name)
		}
	}
	return nil
}

// ImageCache returns the image cache
func (tr *TemplateRegistry) ImageCache() cv.ImageCacheInterface {
	return tr.imageCache
}

// PreloadAll preloads all templates marked for preloading
func (tr *TemplateRegistry) PreloadAll() error {
	return tr.imageCache.PreloadAll()
}

// CacheStats returns image cache statistics
func (tr *TemplateRegistry) CacheStats() CacheStats {
	return tr.imageCache.Stats()
}
