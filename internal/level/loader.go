package level

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strconv"

	"github.com/charmbracelet/log"
)

//go:embed levels/*
var embeddedLevels embed.FS

// Embedded returns the built-in level resources.
func Embedded() fs.FS {
	sub, err := fs.Sub(embeddedLevels, "levels")
	if err != nil {
		panic(err) // the directory is compiled in
	}
	return sub
}

// Dir returns level resources from an on-disk directory.
func Dir(path string) fs.FS {
	return os.DirFS(path)
}

var levelFileRe = regexp.MustCompile(`^level_(\d+)\.properties$`)

// Loader reads level_<n>.properties and level_<n>.txt pairs from a file system.
type Loader struct {
	fsys   fs.FS
	logger *log.Logger
}

// NewLoader creates a loader. A nil fsys uses the embedded levels and a nil
// logger discards output.
func NewLoader(fsys fs.FS, logger *log.Logger) *Loader {
	if fsys == nil {
		fsys = Embedded()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Loader{fsys: fsys, logger: logger}
}

// PropertiesName returns the metadata resource name for level n.
func PropertiesName(n int) string { return fmt.Sprintf("level_%d.properties", n) }

// GridName returns the grid resource name for level n.
func GridName(n int) string { return fmt.Sprintf("level_%d.txt", n) }

// Exists reports whether both resources of level n are present.
func (l *Loader) Exists(n int) bool {
	_, errP := fs.Stat(l.fsys, PropertiesName(n))
	_, errG := fs.Stat(l.fsys, GridName(n))
	return errP == nil && errG == nil
}

// Levels returns the level numbers that have a properties resource, sorted.
func (l *Loader) Levels() ([]int, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("level: cannot list levels: %w", err)
	}
	var nums []int
	for _, e := range entries {
		m := levelFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	slices.Sort(nums)
	return nums, nil
}

// Load parses level n. It always returns a usable map: when a resource is
// missing the error wraps ErrResourceMissing and the map holds whatever could
// be read (DefaultMap if nothing). Warnings are logged, not returned.
func (l *Loader) Load(n int) (*Map, error) {
	var missing error

	props, err := fs.ReadFile(l.fsys, PropertiesName(n))
	if err != nil {
		props = nil
		missing = errors.Join(missing, fmt.Errorf("%w: %s: %w", ErrResourceMissing, PropertiesName(n), err))
	}
	grid, err := fs.ReadFile(l.fsys, GridName(n))
	if err != nil {
		grid = nil
		missing = errors.Join(missing, fmt.Errorf("%w: %s: %w", ErrResourceMissing, GridName(n), err))
	}

	m := Parse(props, grid)
	m.Number = n

	if missing != nil {
		l.logger.Error("level resources missing", "level", n, "error", missing)
	}
	for _, w := range m.Warnings {
		l.logger.Warn("level parse warning", "level", n, "warning", w.Error())
	}
	if m.Complete() {
		l.logger.Debug("all tiles have been added", "level", n, "coins", len(m.Coins), "hazards", len(m.Hazards))
	} else if grid != nil {
		l.logger.Warn("level grid incomplete", "level", n, "tiles", len(m.Tiles))
	}
	return m, missing
}
