package level

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/magiconair/properties"

	"github.com/vovakirdan/tiltmaze/internal/core"
)

// Property keys of the level metadata resource.
const (
	KeySpawnPoint = "spawn_point"
	KeyLevelID    = "level_id"
	KeyLevelTitle = "level_title"
	KeyCoins      = "coins"
)

// hazardLineOffset is the 0-based line of the grid resource where hazard
// descriptors start. Lines between the grid and this offset are ignored.
const hazardLineOffset = 19

// Parse builds a Map from a property resource and a grid resource. Either
// may be nil. Problems are recorded in Map.Warnings; Parse never fails.
func Parse(props, grid []byte) *Map {
	m := DefaultMap()
	p := &parser{m: m}

	if props != nil {
		p.parseProperties(props)
	}
	if grid != nil {
		lines := splitLines(grid)
		p.parseGrid(lines)
		p.parseHazards(lines)
	}
	m.Solid = buildSolidArea(m.Tiles)
	return m
}

type parser struct {
	m *Map
}

func (p *parser) warn(w Warning) {
	p.m.Warnings = append(p.m.Warnings, w)
}

func (p *parser) parseProperties(data []byte) {
	props, err := properties.Load(data, properties.UTF8)
	if err != nil {
		p.warn(newWarning("properties", 0, "cannot load: %v", err))
		return
	}

	if v, ok := props.Get(KeySpawnPoint); ok {
		col, row, err := parseIntPair(v)
		if err != nil {
			p.warn(newWarning("properties", 0, "%s %q: %v", KeySpawnPoint, v, err))
		} else {
			p.m.Spawn = core.Point{
				X: col*core.TileSize + core.TileSize/2,
				Y: row*core.TileSize + core.TileSize/2,
			}
		}
	}

	if v, ok := props.Get(KeyLevelID); ok {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			p.warn(newWarning("properties", 0, "%s %q: %v", KeyLevelID, v, err))
		} else {
			p.m.ID = id
		}
	}

	if v, ok := props.Get(KeyLevelTitle); ok {
		p.m.Title = v
	}

	if v, ok := props.Get(KeyCoins); ok {
		p.m.Coins = p.parseCoins(strings.TrimSpace(v))
	}
}

// parseCoins reads "x,y" or "x,y-x,y-..." in tile units, scaled to pixels.
func (p *parser) parseCoins(v string) []Coin {
	if v == "" || v == "null" {
		return nil
	}
	var coins []Coin
	for _, pair := range strings.Split(v, "-") {
		x, y, err := parseFloatPair(pair)
		if err != nil {
			p.warn(newWarning("properties", 0, "%s %q: %v", KeyCoins, pair, err))
			continue
		}
		coins = append(coins, Coin{
			X: int(x * core.TileSize),
			Y: int(y * core.TileSize),
		})
	}
	return coins
}

// parseGrid reads the non-empty lines among the first GridRows lines,
// concatenates them without whitespace and maps each digit to a tile.
func (p *parser) parseGrid(lines []string) {
	var sb strings.Builder
	for i := 0; i < len(lines) && i < core.GridRows; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		sb.WriteString(stripSpace(line))
	}

	cells := []rune(sb.String())
	if len(cells) > core.GridTiles {
		cells = cells[:core.GridTiles]
	}

	tiles := make([]Tile, 0, len(cells))
	for i, r := range cells {
		t := Tile{Col: i % core.GridCols, Row: i / core.GridCols}
		if r >= '0' && r <= '9' {
			t.Type = int(r - '0')
		} else {
			p.warn(newWarning("grid", 0, "tile %d (%d,%d): invalid type %q", i, t.Col, t.Row, r))
		}
		tiles = append(tiles, t)
	}
	p.m.Tiles = tiles
}

// parseHazards reads one descriptor per non-empty line from hazardLineOffset on:
// id-groupId-x,y-x,y-speed-flagA-flagB.
func (p *parser) parseHazards(lines []string) {
	for i := hazardLineOffset; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		fields := strings.Split(stripSpace(line), "-")
		if len(fields) < 7 {
			continue
		}
		h, err := parseHazard(fields)
		if err != nil {
			if errors.Is(err, ErrFieldIndex) {
				continue
			}
			p.warn(newWarning("hazards", i+1, "%q: %v", line, err))
			continue
		}
		p.m.Hazards = append(p.m.Hazards, h)
	}
}

func parseHazard(fields []string) (HazardDescriptor, error) {
	var h HazardDescriptor
	var err error

	if h.ID, err = strconv.Atoi(fields[0]); err != nil {
		return h, fmt.Errorf("id: %w", err)
	}
	if h.GroupID, err = strconv.Atoi(fields[1]); err != nil {
		return h, fmt.Errorf("group: %w", err)
	}
	if h.Start, err = parsePoint(fields[2]); err != nil {
		return h, fmt.Errorf("start: %w", err)
	}
	if h.End, err = parsePoint(fields[3]); err != nil {
		return h, fmt.Errorf("end: %w", err)
	}
	if h.Speed, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return h, fmt.Errorf("speed: %w", err)
	}
	h.FlagA = strings.EqualFold(fields[5], "true")
	h.FlagB = strings.EqualFold(fields[6], "true")
	return h, nil
}

// parsePoint parses "x,y". A missing component is ErrFieldIndex.
func parsePoint(s string) (core.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return core.Point{}, fmt.Errorf("%w: %q", ErrFieldIndex, s)
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return core.Point{}, err
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return core.Point{}, err
	}
	return core.Point{X: x, Y: y}, nil
}

func parseIntPair(s string) (int, int, error) {
	pt, err := parsePoint(stripSpace(s))
	return pt.X, pt.Y, err
}

func parseFloatPair(s string) (float64, float64, error) {
	parts := strings.Split(stripSpace(s), ",")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrFieldIndex, s)
	}
	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func splitLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
