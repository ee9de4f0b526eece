package bot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/botty-go/internal/char"
	"jordanella.com/botty-go/internal/config"
	"jordanella.com/botty-go/internal/cv"
	"jordanella.com/botty-go/internal/database"
	"jordanella.com/botty-go/internal/events"
	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/logging"
	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/pather"
	"jordanella.com/botty-go/internal/screen"
	"jordanella.com/botty-go/internal/ui"
	"jordanella.com/botty-go/pkg/templates"
)

// automapTemplate, when registered, lets the automap toggle read the
// overlay state from the screen
const automapTemplate = "automap_shown"

// Paths locates the assets of a bot. Empty fields use the defaults under
// BaseDir.
type Paths struct {
	BaseDir      string
	TemplatesDir string // PNG landmarks and their YAML definitions
	RoutesDir    string // YAML nodes and routes
	DBPath       string // empty disables history
}

func (p Paths) withDefaults() Paths {
	if p.TemplatesDir == "" {
		p.TemplatesDir = filepath.Join(p.BaseDir, "assets", "templates")
	}
	if p.RoutesDir == "" {
		p.RoutesDir = filepath.Join(p.BaseDir, "assets", "routes")
	}
	return p
}

// Devices overrides the desktop adapters, for offline tools and tests
type Devices struct {
	Grabber  screen.Grabber
	Mouse    input.Mouse
	Keyboard input.Keyboard
	Clock    input.Clock
	Seed     int64
}

// Manager assembles the shared resources of a bot: templates, vision,
// routes, input, character, history and events, and the session on top
type Manager struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *templates.TemplateRegistry
	vision   *cv.Service
	catalog  *pather.Catalog
	pather   *pather.Pather
	char     char.Behavior
	db       *database.DB
	bus      *events.DefaultEventBus
	session  *Session
}

// NewManager builds every component from cfg and the asset paths. Missing
// devices are replaced by the desktop capture and robotgo input.
func NewManager(cfg *config.Config, paths Paths, devices Devices, logger *logging.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, monitor.NewConfigError("config", "", "configuration is required")
	}
	if logger == nil {
		logger = logging.NewLogger("botty")
	}
	paths = paths.withDefaults()
	m := &Manager{cfg: cfg, logger: logger}

	if err := m.loadTemplates(paths.TemplatesDir); err != nil {
		return nil, err
	}
	catalog, err := pather.LoadRoutesFromDir(paths.RoutesDir)
	if err != nil {
		return nil, monitor.NewConfigError("routes", paths.RoutesDir, err.Error())
	}
	if err := catalog.Validate(m.registry); err != nil {
		return nil, monitor.NewConfigError("routes", paths.RoutesDir, err.Error())
	}
	m.catalog = catalog

	h := input.NewHumanizer(devices.Clock, cfg.Input, seedOr(devices.Seed))
	grabber := devices.Grabber
	if grabber == nil {
		grabber, err = m.desktopGrabber()
		if err != nil {
			return nil, err
		}
	}
	mouse, keyboard := devices.Mouse, devices.Keyboard
	if mouse == nil {
		mouse = input.NewRobotMouse(h)
	}
	if keyboard == nil {
		keyboard = input.NewRobotKeyboard(h)
	}

	m.vision = cv.NewService(grabber, m.registry).WithColors(cfg.Colors)
	m.bus = events.NewEventBus(256, logger)
	m.pather = pather.New(m.vision, catalog, cfg.Pather, h, logger.Named("Pather")).WithPaths(cfg.Paths)

	if m.char, err = m.buildChar(h, mouse, keyboard); err != nil {
		m.bus.Stop()
		return nil, err
	}

	if paths.DBPath != "" {
		if m.db, err = database.OpenAndMigrate(paths.DBPath, logger.Named("Database")); err != nil {
			m.bus.Stop()
			return nil, err
		}
	}

	var health *monitor.HealthChecker
	if cfg.General.StuckTimeout > 0 {
		health = monitor.NewHealthChecker(m.probeScreen).
			WithCheckInterval(cfg.General.StuckTimeout / 3).
			WithStuckTimeout(cfg.General.StuckTimeout, 1)
	}

	m.session, err = NewSession(Deps{
		Config:    cfg,
		Char:      m.char,
		Pather:    m.pather,
		Humanizer: h,
		DB:        m.db,
		Bus:       m.bus,
		Logger:    logger.Named("Session"),
		Health:    health,
	}, Options{})
	if err != nil {
		m.Shutdown()
		return nil, err
	}
	return m, nil
}

// probeScreen fails when a frame can no longer be grabbed
func (m *Manager) probeScreen() error {
	_, _, err := m.vision.Grab()
	return err
}

func seedOr(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// loadTemplates reads the YAML definitions first so their thresholds and
// masks win over the plain PNG registration
func (m *Manager) loadTemplates(dir string) error {
	m.registry = templates.NewTemplateRegistry(dir, m.logger)
	if _, err := os.Stat(dir); err != nil {
		return monitor.NewConfigError("templates", dir, err.Error())
	}
	if err := m.registry.LoadFromDirectory(dir); err != nil {
		return monitor.NewConfigError("templates", dir, err.Error())
	}
	n, err := m.registry.RegisterImages(dir)
	if err != nil {
		return monitor.NewConfigError("templates", dir, err.Error())
	}
	m.logger.Infof("Loaded %d templates (%d from images)", m.registry.Count(), n)
	return nil
}

func (m *Manager) desktopGrabber() (screen.Grabber, error) {
	origin, err := screen.DisplayOrigin(m.cfg.Advanced.MonitorIndex)
	if err != nil {
		return nil, monitor.NewDeviceError("capture", "display", err)
	}
	tracker := screen.NewWindowTracker(m.cfg.Converter(origin))
	if title := m.cfg.Advanced.WindowTitle; title != "" {
		if offset, err := screen.LocateWindow(title); err != nil {
			m.logger.Warnf("Window %q not found, using the configured offset: %v", title, err)
		} else {
			tracker.SetOffset(offset.Add(m.cfg.Advanced.WindowClientAreaOffset))
		}
	}
	return screen.NewDisplayGrabber(tracker), nil
}

func (m *Manager) buildChar(h *input.Humanizer, mouse input.Mouse, keyboard input.Keyboard) (char.Behavior, error) {
	skills, err := ui.NewSkillDetector(m.vision, m.cfg.UIROI)
	if err != nil {
		return nil, err
	}
	base, err := char.NewBase(char.Deps{
		Config:    m.cfg,
		Mouse:     mouse,
		Keyboard:  keyboard,
		Humanizer: h,
		Screen:    m.vision,
		Skills:    skills,
		Logger:    m.logger.Named("Char"),
		Publisher: m.bus,
	})
	if err != nil {
		return nil, err
	}

	switch m.cfg.Char.Type {
	case "hammerdin", "paladin":
		automap := ui.NewAutomap(keyboard, h, m.cfg.Char.ShowAutomap)
		if m.registry.Has(automapTemplate) {
			automap.WithDetector(m.vision, automapTemplate)
		}
		return char.NewPaladin(base, m.pather, automap), nil
	case "":
		return nil, monitor.NewConfigError("char", "type", "not set")
	default:
		return nil, monitor.NewConfigError("char", "type", fmt.Sprintf("unsupported class %q", m.cfg.Char.Type))
	}
}

// Session returns the assembled session
func (m *Manager) Session() *Session { return m.session }

// Bus returns the event bus the session publishes on
func (m *Manager) Bus() *events.DefaultEventBus { return m.bus }

// DB returns the history database, nil when disabled
func (m *Manager) DB() *database.DB { return m.db }

// Vision returns the capture and matching service
func (m *Manager) Vision() *cv.Service { return m.vision }

// Registry returns the template registry
func (m *Manager) Registry() *templates.TemplateRegistry { return m.registry }

// Shutdown stops the session and releases the bus and the database
func (m *Manager) Shutdown() error {
	if m.session != nil {
		m.session.Stop()
	}
	if m.bus != nil {
		m.bus.Stop()
	}
	var errs []error
	if m.db != nil {
		errs = append(errs, m.maintainDB(), m.db.Close())
	}
	return errors.Join(errs...)
}

// maintainDB prunes old error rows and writes the configured backup
func (m *Manager) maintainDB() error {
	general := m.cfg.General
	if general.ErrorRetention > 0 {
		n, err := m.db.DeleteOldErrors(time.Now().Add(-general.ErrorRetention))
		if err != nil {
			return fmt.Errorf("prune error log: %w", err)
		}
		if n > 0 {
			m.logger.Infof("Pruned %d old error log entries", n)
			if err := m.db.Vacuum(); err != nil {
				return fmt.Errorf("vacuum: %w", err)
			}
		}
	}
	if general.DBBackup != "" {
		if err := m.db.Backup(general.DBBackup); err != nil {
			return err
		}
		m.logger.Infof("History backed up to %s", general.DBBackup)
	}
	return nil
}
