// Package manifest handles gametags.toml dictionary configuration.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/gametags/source"
	"github.com/chazu/gametags/tags"
)

var log = commonlog.GetLogger("gametags.manifest")

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "gametags.toml"

// Manifest represents a gametags.toml file.
type Manifest struct {
	Tags      TagsConfig      `toml:"tags"`
	Redirects []tags.Redirect `toml:"redirects"`

	// Dir is the directory containing the gametags.toml file (set at load time).
	Dir string `toml:"-"`
}

// TagsConfig is the [tags] table.
type TagsConfig struct {
	ImportFromConfig   bool            `toml:"import-from-config"`
	WarnOnInvalid      bool            `toml:"warn-on-invalid"`
	FastReplication    bool            `toml:"fast-replication"`
	FirstBitSegment    int             `toml:"first-bit-segment"`
	ContainerSizeBits  int             `toml:"container-size-bits"`
	Tables             []string        `toml:"tables"`
	CommonlyReplicated []string        `toml:"commonly-replicated"`
	DeveloperDir       string          `toml:"developer-dir"`
	List               []tags.TableRow `toml:"list"`
}

// developerFile is the per-developer override file.
type developerFile struct {
	List []tags.TableRow `toml:"list"`
}

func defaults() Manifest {
	s := tags.DefaultSettings()
	return Manifest{Tags: TagsConfig{
		ImportFromConfig:  s.ImportFromConfig,
		WarnOnInvalid:     s.WarnOnInvalid,
		FastReplication:   s.FastReplication,
		FirstBitSegment:   s.FirstBitSegment,
		ContainerSizeBits: s.ContainerSizeBits,
	}}
}

// Load parses and validates a gametags.toml file from the given directory.
// Keys left out keep their defaults.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(dir, data)
}

// Parse validates and decodes manifest text as if it were read from dir.
func Parse(dir string, data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filepath.Join(dir, FileName), err)
	}
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", filepath.Join(dir, FileName), err)
	}

	m := defaults()
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filepath.Join(dir, FileName), err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.Dir = abs
	return &m, nil
}

// FindAndLoad walks up from startDir to find a gametags.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Settings converts the [tags] flags to registry settings.
func (m *Manifest) Settings() tags.Settings {
	return tags.Settings{
		ImportFromConfig:   m.Tags.ImportFromConfig,
		WarnOnInvalid:      m.Tags.WarnOnInvalid,
		FastReplication:    m.Tags.FastReplication,
		FirstBitSegment:    m.Tags.FirstBitSegment,
		ContainerSizeBits:  m.Tags.ContainerSizeBits,
		CommonlyReplicated: append([]string(nil), m.Tags.CommonlyReplicated...),
	}
}

// TablePaths returns absolute paths for the configured tag tables.
func (m *Manifest) TablePaths() []string {
	var paths []string
	for _, t := range m.Tags.Tables {
		if filepath.IsAbs(t) {
			paths = append(paths, t)
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, t))
	}
	return paths
}

// Sources opens every configured tag table.
func (m *Manifest) Sources() ([]tags.Source, error) {
	return source.OpenAll(m.Dir, m.TablePaths())
}

// DeveloperPath returns the override file for developer, or "" when no
// developer directory is configured.
func (m *Manifest) DeveloperPath(developer string) string {
	if m.Tags.DeveloperDir == "" || developer == "" {
		return ""
	}
	dir := m.Tags.DeveloperDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.Dir, dir)
	}
	return filepath.Join(dir, developer+".toml")
}

// DeveloperRows reads developer's override list. A missing file is not an
// error.
func (m *Manifest) DeveloperRows(developer string) ([]tags.TableRow, error) {
	path := m.DeveloperPath(developer)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("no developer overrides at %s", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var f developerFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return f.List, nil
}

// Options assembles registry options for developer: settings, table
// sources, the config list, developer overrides and redirects.
func (m *Manifest) Options(developer string) ([]tags.Option, error) {
	sources, err := m.Sources()
	if err != nil {
		return nil, err
	}
	dev, err := m.DeveloperRows(developer)
	if err != nil {
		return nil, err
	}
	return []tags.Option{
		tags.WithSettings(m.Settings()),
		tags.WithSources(sources...),
		tags.WithConfigTags(m.Tags.List),
		tags.WithDeveloperTags(dev),
		tags.WithRedirects(m.Redirects),
	}, nil
}

// NewRegistry builds an unconstructed registry from the manifest.
func (m *Manifest) NewRegistry(developer string) (*tags.Registry, error) {
	opts, err := m.Options(developer)
	if err != nil {
		return nil, err
	}
	return tags.NewRegistry(opts...), nil
}
