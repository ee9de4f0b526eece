// Package config loads the bot configuration from INI files into an
// immutable snapshot. The only value that changes after load is the
// gold-pickup flag held by Runtime.
package config

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"jordanella.com/botty-go/internal/cv"
	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/logging"
	"jordanella.com/botty-go/internal/screen"
)

// Design frame size used when [ui_pos] does not set one
const (
	DefaultScreenWidth  = 1280
	DefaultScreenHeight = 720
)

// General holds the [general] section
type General struct {
	Name                string
	MaxGameLength       time.Duration
	MaxConsecutiveFails int
	RandomizeRuns       bool
	Difficulty          string
	// StuckTimeout ends a game without pather or run progress for this
	// long, 0 disables the check
	StuckTimeout time.Duration
	// DBBackup is where the history database is copied on shutdown
	DBBackup string
	// ErrorRetention prunes older error log rows on shutdown, 0 keeps all
	ErrorRetention time.Duration
}

// Char holds the [char] section
type Char struct {
	Type            string
	Teleport        string
	StandStill      string
	ShowAutomap     string
	ForceMove       string
	NumLootColumns  int
	StashGold       bool
	PreBuffEveryRun bool
	CTAAvailable    bool
	WeaponSwitch    string
	BattleOrders    string
	BattleCommand   string
	CastingFrames   int

	// AttackLengths maps the atk_len_* keys, without the prefix, to seconds
	AttackLengths map[string]float64
}

// AttackLength returns the configured attack duration for a location
func (c Char) AttackLength(location string) float64 {
	return c.AttackLengths[location]
}

// AdvancedOptions holds the [advanced_options] section
type AdvancedOptions struct {
	PathingDelayFactor     int
	LogLevel               logging.LogLevel
	WindowClientAreaOffset image.Point
	WindowScale            float64
	OverrideCapabilities   string
	WindowTitle            string
	MonitorIndex           int // display the game runs on
}

// Pather holds the [pather] tuning knobs for node traversal
type Pather struct {
	CloseEnough       float64       // radius, in design pixels, that counts as arrived
	NodeTimeout       time.Duration // wall-clock budget of one node attempt
	MaxRetries        int
	StuckHashDistance int // dHash distance at or below which two frames count as unchanged
	Threshold         float64
}

// Config is the loaded configuration snapshot
type Config struct {
	General  General
	Char     Char
	Advanced AdvancedOptions
	Pather   Pather
	Input    input.Jitter

	// Skills maps skill names to hotkeys for the configured character class
	Skills map[string]string

	Colors      map[string]cv.ColorRange
	UIPos       map[string]int
	UIROI       map[string]screen.ROI
	Paths       map[string][]screen.ScreenPoint
	RoutesOrder []string

	Runtime *Runtime
}

// Load reads the standard configuration files from dir
func Load(dir string) (*Config, error) {
	return LoadFiles(DefaultFiles(dir))
}

// LoadFiles reads and validates a configuration
func LoadFiles(files Files) (*Config, error) {
	ls, err := loadLayers(files)
	if err != nil {
		return nil, err
	}

	r := &reader{layers: ls}
	cfg := &Config{}
	cfg.General = readGeneral(r)
	cfg.Char = readChar(r, ls)
	cfg.Advanced = readAdvanced(r)
	cfg.Pather = readPather(r)
	cfg.Input = readInput(r)
	cfg.RoutesOrder = r.List("routes", "order")
	if r.err != nil {
		return nil, r.err
	}

	cfg.Skills = readSkills(ls, cfg.Char.Type)

	if cfg.Colors, err = readColors(r, ls); err != nil {
		return nil, err
	}
	cfg.UIPos = readUIPos(r, ls)
	cfg.UIROI = readUIROI(r, ls)
	cfg.Paths = readPaths(r, ls)
	if r.err != nil {
		return nil, r.err
	}
	deriveInventoryROIs(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime = NewRuntime(cfg.Char.StashGold)
	return cfg, nil
}

func readGeneral(r *reader) General {
	return General{
		Name:                r.StringOr("general", "name", "botty"),
		MaxGameLength:       seconds(r.Float("general", "max_game_length_s")),
		MaxConsecutiveFails: r.Int("general", "max_consecutive_fails"),
		RandomizeRuns:       r.BoolOr("general", "randomize_runs", false),
		Difficulty:          r.StringOr("general", "difficulty", "hell"),
		StuckTimeout:        seconds(r.FloatOr("general", "stuck_timeout_s", 0)),
		DBBackup:            r.StringOr("general", "db_backup", ""),
		ErrorRetention:      time.Duration(r.FloatOr("general", "error_retention_days", 0) * float64(24*time.Hour)),
	}
}

func readChar(r *reader, ls layers) Char {
	c := Char{
		Type:            r.String("char", "type"),
		Teleport:        r.StringOr("char", "teleport", ""),
		StandStill:      r.String("char", "stand_still"),
		ShowAutomap:     r.StringOr("char", "show_automap", ""),
		ForceMove:       r.String("char", "force_move"),
		NumLootColumns:  r.IntOr("char", "num_loot_columns", 0),
		StashGold:       r.BoolOr("char", "stash_gold", true),
		PreBuffEveryRun: r.BoolOr("char", "pre_buff_every_run", false),
		CTAAvailable:    r.BoolOr("char", "cta_available", false),
		WeaponSwitch:    r.StringOr("char", "weapon_switch", ""),
		BattleOrders:    r.StringOr("char", "battle_orders", ""),
		BattleCommand:   r.StringOr("char", "battle_command", ""),
		CastingFrames:   r.Int("char", "casting_frames"),
		AttackLengths:   make(map[string]float64),
	}

	names := append(ls.keyNames("params", "char"), ls.keyNames("custom", "char")...)
	for _, name := range names {
		if loc := strings.TrimPrefix(name, "atk_len_"); loc != name && loc != "" {
			c.AttackLengths[loc] = r.FloatOr("char", name, 0)
		}
	}
	return c
}

func readAdvanced(r *reader) AdvancedOptions {
	a := AdvancedOptions{
		PathingDelayFactor:   clamp(r.IntOr("advanced_options", "pathing_delay_factor", 4), 1, 10),
		WindowScale:          r.FloatOr("advanced_options", "window_scale", 1.0),
		OverrideCapabilities: r.StringOr("advanced_options", "override_capabilities", ""),
		WindowTitle:          r.StringOr("advanced_options", "hwnd_window_title", ""),
		MonitorIndex:         r.IntOr("advanced_options", "monitor", 0),
	}

	level, err := logging.ParseLevel(r.StringOr("advanced_options", "logg_lvl", "info"))
	if err != nil {
		r.fail("advanced_options", "logg_lvl", "unknown log level", err)
	}
	a.LogLevel = level

	if r.key("advanced_options", "window_client_area_offset", false) != nil {
		off := r.Ints("advanced_options", "window_client_area_offset")
		if r.err == nil && len(off) != 2 {
			r.fail("advanced_options", "window_client_area_offset", "expected x,y", nil)
		} else if len(off) == 2 {
			a.WindowClientAreaOffset = image.Pt(off[0], off[1])
		}
	}
	return a
}

func readPather(r *reader) Pather {
	return Pather{
		CloseEnough:       r.FloatOr("pather", "close_enough", 30),
		NodeTimeout:       seconds(r.FloatOr("pather", "node_timeout_s", 5)),
		MaxRetries:        r.IntOr("pather", "max_retries", 3),
		StuckHashDistance: r.IntOr("pather", "stuck_hash_distance", 2),
		Threshold:         r.FloatOr("pather", "threshold", 0.68),
	}
}

func readInput(r *reader) input.Jitter {
	def := input.DefaultJitter()
	return input.Jitter{
		Click: r.RangeOr("input", "click_delay", def.Click),
		Key:   r.RangeOr("input", "key_delay", def.Key),
		Step:  r.RangeOr("input", "step_delay", def.Step),
	}
}

// readSkills merges the class sections into one hotkey map. For paladin
// variants the [paladin] base section overrides the variant section.
func readSkills(ls layers, charType string) map[string]string {
	skills := ls.mergedSection(charType)
	switch charType {
	case "hammerdin", "fohdin", "paladin":
		for k, v := range ls.mergedSection("paladin") {
			skills[k] = v
		}
	}
	return skills
}

func readColors(r *reader, ls layers) (map[string]cv.ColorRange, error) {
	colors := make(map[string]cv.ColorRange)
	for _, name := range ls.keyNames("game", "colors") {
		vals := r.Ints("colors", name)
		if r.err != nil {
			return nil, r.err
		}
		cr, err := cv.NewColorRange(name, vals)
		if err != nil {
			return nil, errorf("colors", name, "%v", err)
		}
		colors[name] = cr
	}
	return colors, nil
}

func readUIPos(r *reader, ls layers) map[string]int {
	pos := make(map[string]int)
	for _, name := range ls.keyNames("game", "ui_pos") {
		pos[name] = r.Int("ui_pos", name)
	}
	return pos
}

func readUIROI(r *reader, ls layers) map[string]screen.ROI {
	rois := make(map[string]screen.ROI)
	for _, name := range ls.keyNames("game", "ui_roi") {
		vals := r.Ints("ui_roi", name)
		if r.err != nil {
			return rois
		}
		if len(vals) != 4 {
			r.fail("ui_roi", name, fmt.Sprintf("expected x,y,w,h, got %d values", len(vals)), nil)
			return rois
		}
		rois[name] = screen.NewROI(vals[0], vals[1], vals[2], vals[3])
	}
	return rois
}

func readPaths(r *reader, ls layers) map[string][]screen.ScreenPoint {
	paths := make(map[string][]screen.ScreenPoint)
	for _, name := range ls.keyNames("game", "path") {
		vals := r.Ints("path", name)
		if r.err != nil {
			return paths
		}
		if len(vals)%2 != 0 {
			r.fail("path", name, "odd number of coordinates", nil)
			return paths
		}
		pts := make([]screen.ScreenPoint, 0, len(vals)/2)
		for i := 0; i < len(vals); i += 2 {
			pts = append(pts, screen.ScreenPoint{X: vals[i], Y: vals[i+1]})
		}
		paths[name] = pts
	}
	return paths
}

// deriveInventoryROIs splits the right inventory into the columns reserved
// for loot and the rest
func deriveInventoryROIs(cfg *Config) {
	inv, ok := cfg.UIROI["right_inventory"]
	if !ok {
		return
	}
	openWidth := cfg.UIPos["slot_width"] * cfg.Char.NumLootColumns
	cfg.UIROI["restricted_inventory_area"] = inv.Shrink(openWidth)
	cfg.UIROI["open_inventory_area"] = inv.WithWidth(openWidth)
}

// Validate checks the invariants the rest of the bot relies on
func (c *Config) Validate() error {
	names := make([]string, 0, len(c.UIROI))
	for name := range c.UIROI {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "open_inventory_area" && c.Char.NumLootColumns == 0 {
			continue
		}
		if err := c.UIROI[name].Validate(); err != nil {
			return errorf("ui_roi", name, "%v", err)
		}
	}

	if c.Pather.Threshold < 0 || c.Pather.Threshold > 1 {
		return errorf("pather", "threshold", "must be within [0, 1], got %v", c.Pather.Threshold)
	}
	if c.Pather.NodeTimeout <= 0 {
		return errorf("pather", "node_timeout_s", "must be positive")
	}
	if c.Pather.CloseEnough <= 0 {
		return errorf("pather", "close_enough", "must be positive")
	}
	if c.Pather.MaxRetries < 1 {
		return errorf("pather", "max_retries", "must be at least 1")
	}
	if c.General.MaxGameLength <= 0 {
		return errorf("general", "max_game_length_s", "must be positive")
	}
	if c.General.MaxConsecutiveFails < 0 {
		return errorf("general", "max_consecutive_fails", "must not be negative")
	}
	if c.Char.CastingFrames <= 0 {
		return errorf("char", "casting_frames", "must be positive")
	}
	if c.Advanced.WindowScale <= 0 {
		return errorf("advanced_options", "window_scale", "must be positive")
	}
	for _, j := range [][2]float64{c.Input.Click, c.Input.Key, c.Input.Step} {
		if j[0] < 0 || j[1] < j[0] {
			return errorf("input", "", "invalid delay range %v", j)
		}
	}
	return nil
}

// Converter builds the coordinate converter for the configured window
func (c *Config) Converter(monitorOrigin image.Point) screen.Converter {
	w, h := c.ScreenSize()
	return screen.NewConverter(w, h, c.Advanced.WindowScale, monitorOrigin.Add(c.Advanced.WindowClientAreaOffset))
}

// ScreenSize returns the design frame size
func (c *Config) ScreenSize() (int, int) {
	w, h := c.UIPos["screen_width"], c.UIPos["screen_height"]
	if w <= 0 {
		w = DefaultScreenWidth
	}
	if h <= 0 {
		h = DefaultScreenHeight
	}
	return w, h
}

// PathingDelay returns the mouse delay factor range for movement clicks
func (c *Config) PathingDelay() [2]float64 {
	f := float64(c.Advanced.PathingDelayFactor)
	return [2]float64{f * 0.01, f * 0.02}
}

// CastDuration returns the length of one cast animation in seconds
func (c *Config) CastDuration() float64 {
	return float64(c.Char.CastingFrames)*0.04 + 0.01
}

// Runtime holds the values that may change while the bot runs
type Runtime struct {
	mu        sync.Mutex
	stashGold bool
}

// NewRuntime creates the runtime cell with the configured gold flag
func NewRuntime(stashGold bool) *Runtime {
	return &Runtime{stashGold: stashGold}
}

// TurnOffGoldPickup stops gold from being picked up and stashed
func (r *Runtime) TurnOffGoldPickup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stashGold = false
}

// TurnOnGoldPickup resumes gold pickup
func (r *Runtime) TurnOnGoldPickup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stashGold = true
}

// StashGold reports whether gold is currently picked up
func (r *Runtime) StashGold() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stashGold
}

// ResolveDir finds the config directory, preferring an explicit path and
// then ./config next to the working directory
func ResolveDir(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if dir := os.Getenv("BOTTY_CONFIG_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(".", "config")
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
