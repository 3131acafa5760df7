// Package gridio loads the scenario rasters and serves them by year.
package gridio

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tfcollins140/sleuth3rUGM/config"
	"github.com/tfcollins140/sleuth3rUGM/raster"
)

// Layer is a dated raster.
type Layer struct {
	Year int
	Grid *raster.Grid
}

// Repository holds every input raster of a scenario. Rasters are read-only
// once loaded; the growth engine and metrics borrow them by pointer.
type Repository struct {
	Rows, Cols int

	slope    *raster.Grid
	excluded *raster.Grid
	urban    []Layer
	roads    []Layer

	excludedCount int
	roadCounts    []int
}

// NewRepository checks that all rasters share a shape and indexes them.
// urban and roads are sorted by year.
func NewRepository(slope, excluded *raster.Grid, urban, roads []Layer) (*Repository, error) {
	if slope == nil || excluded == nil {
		return nil, fmt.Errorf("repository: slope and excluded rasters are required")
	}
	if len(urban) == 0 || len(roads) == 0 {
		return nil, fmt.Errorf("repository: need at least one urban and one road raster, got %d and %d", len(urban), len(roads))
	}
	r := &Repository{
		Rows:     slope.Rows,
		Cols:     slope.Cols,
		slope:    slope,
		excluded: excluded,
		urban:    slices.Clone(urban),
		roads:    slices.Clone(roads),
	}
	byYear := func(a, b Layer) int { return a.Year - b.Year }
	slices.SortFunc(r.urban, byYear)
	slices.SortFunc(r.roads, byYear)

	check := func(name string, g *raster.Grid) error {
		if !slope.SameShape(g) {
			return fmt.Errorf("repository: %s is %dx%d, slope is %dx%d", name, g.Rows, g.Cols, slope.Rows, slope.Cols)
		}
		return nil
	}
	if err := check("excluded", excluded); err != nil {
		return nil, err
	}
	for _, l := range r.urban {
		if err := check(fmt.Sprintf("urban %d", l.Year), l.Grid); err != nil {
			return nil, err
		}
	}
	for _, l := range r.roads {
		if err := check(fmt.Sprintf("roads %d", l.Year), l.Grid); err != nil {
			return nil, err
		}
		r.roadCounts = append(r.roadCounts, l.Grid.CountNonZero())
	}
	r.excludedCount = excluded.CountAtLeast(100)
	return r, nil
}

// Load reads the rasters listed in inputs from dir.
func Load(dir string, inputs config.InputsConfig) (*Repository, error) {
	read := func(name string) (*raster.Grid, error) {
		return ReadRaster(filepath.Join(dir, name))
	}
	slope, err := read(inputs.Slope)
	if err != nil {
		return nil, err
	}
	excluded, err := read(inputs.Excluded)
	if err != nil {
		return nil, err
	}
	readLayers := func(files []config.LayerFile) ([]Layer, error) {
		out := make([]Layer, 0, len(files))
		for _, f := range files {
			g, err := read(f.File)
			if err != nil {
				return nil, err
			}
			out = append(out, Layer{Year: f.Year, Grid: g})
		}
		return out, nil
	}
	urban, err := readLayers(inputs.Urban)
	if err != nil {
		return nil, err
	}
	roads, err := readLayers(inputs.Roads)
	if err != nil {
		return nil, err
	}

	repo, err := NewRepository(slope, excluded, urban, roads)
	if err != nil {
		return nil, err
	}
	slog.Info("inputs loaded",
		"dir", dir,
		"rows", repo.Rows,
		"cols", repo.Cols,
		"urban_layers", len(urban),
		"road_layers", len(roads),
		"excluded_pixels", repo.excludedCount,
	)
	return repo, nil
}

// Slope returns the slope raster.
func (r *Repository) Slope() *raster.Grid { return r.slope }

// Excluded returns the exclusion raster.
func (r *Repository) Excluded() *raster.Grid { return r.excluded }

// ExcludedPixels returns the number of pixels with exclusion >= 100.
func (r *Repository) ExcludedPixels() int { return r.excludedCount }

// TotalPixels returns rows×cols.
func (r *Repository) TotalPixels() int { return r.Rows * r.Cols }

// Urban returns the historical urban layers in year order. Index 0 is the seed.
func (r *Repository) Urban() []Layer { return r.urban }

// Roads returns the road layers, oldest first.
func (r *Repository) Roads() []Layer { return r.roads }

// Seed returns the earliest urban layer.
func (r *Repository) Seed() Layer { return r.urban[0] }

// UrbanIndex returns the position of year among the urban layers.
func (r *Repository) UrbanIndex(year int) (int, bool) {
	return slices.BinarySearchFunc(r.urban, year, func(l Layer, y int) int { return l.Year - y })
}

func (r *Repository) roadIndex(year int) int {
	i, found := slices.BinarySearchFunc(r.roads, year, func(l Layer, y int) int { return l.Year - y })
	switch {
	case found:
		return i
	case i == 0:
		return 0
	default:
		return i - 1
	}
}

// RoadFor returns the most recent road layer at or before year, or the
// earliest layer when year precedes them all.
func (r *Repository) RoadFor(year int) *raster.Grid { return r.roads[r.roadIndex(year)].Grid }

// RoadPixels returns the number of road pixels in RoadFor(year).
func (r *Repository) RoadPixels(year int) int { return r.roadCounts[r.roadIndex(year)] }

// ReadRaster decodes a GIF or PNG file into a raster. Paletted images
// contribute their palette index, grey images their luminance and colour
// images their red channel.
func ReadRaster(path string) (*raster.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raster: %w", err)
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gif":
		img, err = gif.Decode(f)
	case ".png":
		img, err = png.Decode(f)
	default:
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode raster %s: %w", path, err)
	}
	return FromImage(img), nil
}

// FromImage converts img to a raster of 8-bit values.
func FromImage(img image.Image) *raster.Grid {
	b := img.Bounds()
	g := raster.New(b.Dy(), b.Dx())
	cells := g.Cells()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			switch im := img.(type) {
			case *image.Paletted:
				cells[i] = im.ColorIndexAt(x, y)
			case *image.Gray:
				cells[i] = im.GrayAt(x, y).Y
			default:
				r, _, _, _ := im.At(x, y).RGBA()
				cells[i] = uint8(r >> 8)
			}
			i++
		}
	}
	return g
}

// WriteRaster encodes g as an 8-bit greyscale PNG.
func WriteRaster(path string, g *raster.Grid) error {
	img := image.NewGray(image.Rect(0, 0, g.Cols, g.Rows))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			img.SetGray(c, r, color.Gray{Y: g.At(r, c)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create raster: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode raster: %w", err)
	}
	return f.Close()
}
