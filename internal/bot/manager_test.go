package bot

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/botty-go/internal/config"
	"jordanella.com/botty-go/internal/input/inputtest"
	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

const pitRoutes = `
nodes:
  - id: 10
    landmarks:
      - template: pit_a
routes:
  - name: pit
    nodes: [10]
`

func writePNG(t *testing.T, path string, seed uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x*20) + seed, G: uint8(y * 20), B: seed, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// newAssets lays out templates and routes under a temp base dir
func newAssets(t *testing.T, routes string) Paths {
	t.Helper()
	base := t.TempDir()
	tpl := filepath.Join(base, "assets", "templates")
	rts := filepath.Join(base, "assets", "routes")
	require.NoError(t, os.MkdirAll(tpl, 0755))
	require.NoError(t, os.MkdirAll(rts, 0755))

	writePNG(t, filepath.Join(tpl, "pit_a.png"), 10)
	writePNG(t, filepath.Join(tpl, "automap_shown.png"), 40)
	require.NoError(t, os.WriteFile(filepath.Join(rts, "pit.yaml"), []byte(routes), 0644))
	return Paths{BaseDir: base, DBPath: filepath.Join(base, "bot.db")}
}

func managerConfig() *config.Config {
	return &config.Config{
		General: config.General{Name: "test", MaxGameLength: time.Minute, MaxConsecutiveFails: 2},
		Char:    config.Char{Type: "hammerdin", StandStill: "shift", ShowAutomap: "tab", CastingFrames: 10},
		Advanced: config.AdvancedOptions{
			PathingDelayFactor: 4,
			WindowScale:        1,
		},
		Pather: config.Pather{
			CloseEnough: 30, NodeTimeout: time.Second, MaxRetries: 3, StuckHashDistance: 2, Threshold: 0.68,
		},
		Skills:      map[string]string{"vigor": "f5", "charge": "f6"},
		UIROI:       map[string]screen.ROI{"skill_right": screen.NewROI(700, 650, 50, 50)},
		RoutesOrder: []string{RunCS, "pit"},
	}
}

func offlineDevices() Devices {
	clock := inputtest.NewFakeClock()
	rec := inputtest.NewRecorder(clock)
	frame := image.NewRGBA(image.Rect(0, 0, config.DefaultScreenWidth, config.DefaultScreenHeight))
	return Devices{
		Grabber:  &screen.StaticGrabber{Frame: frame, Conv: screen.NewConverter(config.DefaultScreenWidth, config.DefaultScreenHeight, 1, image.Point{})},
		Mouse:    rec,
		Keyboard: rec,
		Clock:    clock,
		Seed:     1,
	}
}

func TestNewManagerAssemblesBot(t *testing.T) {
	paths := newAssets(t, pitRoutes)
	m, err := NewManager(managerConfig(), paths, offlineDevices(), nil)
	require.NoError(t, err)

	require.NotNil(t, m.Session())
	require.NotNil(t, m.DB())
	assert.True(t, m.Registry().Has("pit_a"))
	assert.True(t, m.Registry().Has("automap_shown"))
	assert.Equal(t, StateIdle, m.Session().Controller().State())

	frame, _, err := m.Vision().Grab()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultScreenWidth, frame.Bounds().Dx())

	require.NoError(t, m.Shutdown())
}

func TestManagerShutdownBacksUpHistory(t *testing.T) {
	paths := newAssets(t, pitRoutes)
	cfg := managerConfig()
	cfg.General.DBBackup = filepath.Join(paths.BaseDir, "backup", "bot.db")
	cfg.General.ErrorRetention = 24 * time.Hour

	m, err := NewManager(cfg, paths, offlineDevices(), nil)
	require.NoError(t, err)
	_, err = m.DB().LogError("", "", monitor.ErrTimeout)
	require.NoError(t, err)
	require.NoError(t, m.Shutdown())

	info, err := os.Stat(cfg.General.DBBackup)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestNewManagerWithoutDatabase(t *testing.T) {
	paths := newAssets(t, pitRoutes)
	paths.DBPath = ""
	m, err := NewManager(managerConfig(), paths, offlineDevices(), nil)
	require.NoError(t, err)
	assert.Nil(t, m.DB())
	assert.NoError(t, m.Shutdown())
}

func TestNewManagerRejectsBadSetups(t *testing.T) {
	tests := []struct {
		name   string
		routes string
		mutate func(*config.Config, *Paths)
		want   string
	}{
		{
			name:   "unknown landmark template",
			routes: "nodes:\n  - id: 10\n    landmarks:\n      - template: missing\nroutes:\n  - name: pit\n    nodes: [10]\n",
			want:   "missing",
		},
		{
			name:   "unsupported class",
			routes: pitRoutes,
			mutate: func(c *config.Config, _ *Paths) { c.Char.Type = "necro" },
			want:   "necro",
		},
		{
			name:   "no skill slot",
			routes: pitRoutes,
			mutate: func(c *config.Config, _ *Paths) { delete(c.UIROI, "skill_right") },
			want:   "skill_right",
		},
		{
			name:   "unknown run",
			routes: pitRoutes,
			mutate: func(c *config.Config, _ *Paths) { c.RoutesOrder = []string{"river"} },
			want:   "river",
		},
		{
			name:   "missing templates dir",
			routes: pitRoutes,
			mutate: func(_ *config.Config, p *Paths) { p.TemplatesDir = filepath.Join(p.BaseDir, "nope") },
			want:   "nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := managerConfig()
			paths := newAssets(t, tt.routes)
			if tt.mutate != nil {
				tt.mutate(cfg, &paths)
			}

			_, err := NewManager(cfg, paths, offlineDevices(), nil)
			require.Error(t, err)
			var cfgErr *monitor.ConfigError
			assert.True(t, errors.As(err, &cfgErr), "got %T", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
