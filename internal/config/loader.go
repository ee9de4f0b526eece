package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"jordanella.com/botty-go/internal/monitor"
)

// Files names the INI files that make up a configuration. Shop and Custom
// are optional.
type Files struct {
	Params string
	Game   string
	Shop   string
	Custom string
}

// DefaultFiles returns the standard file set under dir
func DefaultFiles(dir string) Files {
	return Files{
		Params: filepath.Join(dir, "params.ini"),
		Game:   filepath.Join(dir, "game.ini"),
		Shop:   filepath.Join(dir, "shop.ini"),
		Custom: filepath.Join(dir, "custom.ini"),
	}
}

// layer is one loaded INI file
type layer struct {
	name string
	file *ini.File
}

// layers holds the loaded files in lookup order: custom, params, shop, game
type layers []layer

func loadLayers(files Files) (layers, error) {
	opts := ini.LoadOptions{Insensitive: true}

	var out layers

	// custom.ini must never leak into test runs
	if files.Custom != "" && os.Getenv("RUN_ENV") != "test" {
		if f, err := loadOptional(opts, files.Custom); err != nil {
			return nil, err
		} else if f != nil {
			out = append(out, layer{name: "custom", file: f})
		}
	}

	params, err := loadRequired(opts, files.Params)
	if err != nil {
		return nil, err
	}
	out = append(out, layer{name: "params", file: params})

	if files.Shop != "" {
		if f, err := loadOptional(opts, files.Shop); err != nil {
			return nil, err
		} else if f != nil {
			out = append(out, layer{name: "shop", file: f})
		}
	}

	game, err := loadRequired(opts, files.Game)
	if err != nil {
		return nil, err
	}
	out = append(out, layer{name: "game", file: game})

	for _, l := range out {
		substituteVariables(l.file)
	}
	return out, nil
}

func loadRequired(opts ini.LoadOptions, path string) (*ini.File, error) {
	f, err := ini.LoadSources(opts, path)
	if err != nil {
		return nil, &monitor.ConfigError{Reason: "failed to load " + path, Cause: err}
	}
	return f, nil
}

func loadOptional(opts ini.LoadOptions, path string) (*ini.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return loadRequired(opts, path)
}

// substituteVariables replaces every [variables] name with its value in all
// values of the same file, in declaration order
func substituteVariables(f *ini.File) {
	vars, err := f.GetSection("variables")
	if err != nil {
		return
	}
	for _, section := range f.Sections() {
		if section.Name() == "variables" {
			continue
		}
		for _, key := range section.Keys() {
			val := key.Value()
			for _, v := range vars.Keys() {
				val = strings.ReplaceAll(val, v.Name(), v.Value())
			}
			key.SetValue(val)
		}
	}
}

// lookup returns the first key found for section/name in lookup order
func (ls layers) lookup(section, name string) (*ini.Key, string) {
	for _, l := range ls {
		s, err := l.file.GetSection(section)
		if err != nil {
			continue
		}
		if s.HasKey(name) {
			return s.Key(name), l.name
		}
	}
	return nil, ""
}

// keyNames lists the keys of section as declared in the named layer
func (ls layers) keyNames(layerName, section string) []string {
	for _, l := range ls {
		if l.name != layerName {
			continue
		}
		s, err := l.file.GetSection(section)
		if err != nil {
			return nil
		}
		return s.KeyStrings()
	}
	return nil
}

// sectionMap returns section as a map from the named layer, or nil
func (ls layers) sectionMap(layerName, section string) map[string]string {
	for _, l := range ls {
		if l.name != layerName {
			continue
		}
		s, err := l.file.GetSection(section)
		if err != nil {
			return nil
		}
		return s.KeysHash()
	}
	return nil
}

// mergedSection overlays the custom copy of section on the params copy
func (ls layers) mergedSection(section string) map[string]string {
	out := make(map[string]string)
	for k, v := range ls.sectionMap("params", section) {
		out[k] = v
	}
	for k, v := range ls.sectionMap("custom", section) {
		out[k] = v
	}
	return out
}

// reader reads typed values and keeps the first error it meets, so a
// section can be decoded without an error check per key
type reader struct {
	layers layers
	err    error
}

func (r *reader) fail(section, name, reason string, cause error) {
	if r.err != nil {
		return
	}
	r.err = &monitor.ConfigError{Section: section, Key: name, Reason: reason, Cause: cause}
}

func (r *reader) key(section, name string, required bool) *ini.Key {
	k, _ := r.layers.lookup(section, name)
	if k == nil && required {
		r.fail(section, name, "missing required key", nil)
	}
	return k
}

func (r *reader) String(section, name string) string {
	if k := r.key(section, name, true); k != nil {
		return strings.TrimSpace(k.String())
	}
	return ""
}

func (r *reader) StringOr(section, name, def string) string {
	k := r.key(section, name, false)
	if k == nil || strings.TrimSpace(k.String()) == "" {
		return def
	}
	return strings.TrimSpace(k.String())
}

func (r *reader) Int(section, name string) int {
	k := r.key(section, name, true)
	if k == nil {
		return 0
	}
	v, err := k.Int()
	if err != nil {
		r.fail(section, name, "not an integer", err)
	}
	return v
}

func (r *reader) IntOr(section, name string, def int) int {
	k := r.key(section, name, false)
	if k == nil || k.String() == "" {
		return def
	}
	v, err := k.Int()
	if err != nil {
		r.fail(section, name, "not an integer", err)
		return def
	}
	return v
}

func (r *reader) Float(section, name string) float64 {
	k := r.key(section, name, true)
	if k == nil {
		return 0
	}
	v, err := k.Float64()
	if err != nil {
		r.fail(section, name, "not a number", err)
	}
	return v
}

func (r *reader) FloatOr(section, name string, def float64) float64 {
	k := r.key(section, name, false)
	if k == nil || k.String() == "" {
		return def
	}
	v, err := k.Float64()
	if err != nil {
		r.fail(section, name, "not a number", err)
		return def
	}
	return v
}

func (r *reader) BoolOr(section, name string, def bool) bool {
	k := r.key(section, name, false)
	if k == nil || k.String() == "" {
		return def
	}
	v, err := k.Bool()
	if err != nil {
		r.fail(section, name, "not a boolean", err)
		return def
	}
	return v
}

// Ints reads a comma separated list of integers
func (r *reader) Ints(section, name string) []int {
	k := r.key(section, name, true)
	if k == nil {
		return nil
	}
	vals, err := k.StrictInts(",")
	if err != nil {
		r.fail(section, name, "not a list of integers", err)
		return nil
	}
	return vals
}

// RangeOr reads a "lo,hi" pair of floats
func (r *reader) RangeOr(section, name string, def [2]float64) [2]float64 {
	k := r.key(section, name, false)
	if k == nil || k.String() == "" {
		return def
	}
	vals, err := k.StrictFloat64s(",")
	if err != nil || len(vals) != 2 {
		r.fail(section, name, "expected two comma separated numbers", err)
		return def
	}
	return [2]float64{vals[0], vals[1]}
}

// List reads a comma separated list of strings, dropping empty entries
func (r *reader) List(section, name string) []string {
	k := r.key(section, name, false)
	if k == nil {
		return nil
	}
	var out []string
	for _, s := range k.Strings(",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func errorf(section, key, format string, args ...interface{}) error {
	return monitor.NewConfigError(section, key, fmt.Sprintf(format, args...))
}
