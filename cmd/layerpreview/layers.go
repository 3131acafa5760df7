package main

import (
	"fmt"
	"image/color"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tfcollins140/sleuth3rUGM/gridio"
	"github.com/tfcollins140/sleuth3rUGM/raster"
)

// layerKind selects what the preview shows.
type layerKind int

const (
	layerSlope layerKind = iota
	layerExcluded
	layerRoads
	layerUrban
	layerProbability
	numLayers
)

var layerNames = [numLayers]string{"slope", "excluded", "roads", "urban", "probability"}

func (k layerKind) String() string { return layerNames[k] }

// parseLayer resolves a layer by name.
func parseLayer(name string) (layerKind, error) {
	for i, n := range layerNames {
		if strings.EqualFold(n, name) {
			return layerKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layer %q (want one of %s)", name, strings.Join(layerNames[:], ", "))
}

// toggleText is the raygui toggle-group label for every layer.
func toggleText() string { return strings.Join(layerNames[:], ";") }

// frame is one rendered raster. Year is zero for undated layers.
type frame struct {
	Year   int
	Pixels []color.RGBA
}

// scene holds the pre-rendered frames of every layer, all rows×cols.
type scene struct {
	Rows, Cols int
	frames     [numLayers][]frame
}

// buildScene renders every layer of repo, plus the probability rasters.
// Urban and road years are drawn over the slope so the growth context is
// visible.
func buildScene(repo *gridio.Repository, probability []gridio.Layer) (*scene, error) {
	s := &scene{Rows: repo.Rows, Cols: repo.Cols}
	slope := repo.Slope()

	s.frames[layerSlope] = []frame{{Pixels: rampPixels(slope, maxValue(slope))}}
	s.frames[layerExcluded] = []frame{{Pixels: rampPixels(repo.Excluded(), 100)}}
	for _, l := range repo.Roads() {
		s.frames[layerRoads] = append(s.frames[layerRoads],
			frame{Year: l.Year, Pixels: overlay(slope, nil, l.Grid)})
	}
	for _, l := range repo.Urban() {
		s.frames[layerUrban] = append(s.frames[layerUrban],
			frame{Year: l.Year, Pixels: overlay(slope, l.Grid, repo.RoadFor(l.Year))})
	}
	for _, l := range probability {
		if l.Grid.Rows != s.Rows || l.Grid.Cols != s.Cols {
			return nil, fmt.Errorf("probability %d is %dx%d, inputs are %dx%d",
				l.Year, l.Grid.Rows, l.Grid.Cols, s.Rows, s.Cols)
		}
		// probability rasters hold percentages
		s.frames[layerProbability] = append(s.frames[layerProbability],
			frame{Year: l.Year, Pixels: rampPixels(l.Grid, 100)})
	}
	return s, nil
}

// Frames returns the frames of k, oldest first.
func (s *scene) Frames(k layerKind) []frame { return s.frames[k] }

// Frame returns frame i of k, clamped to the available years. ok is false
// when k has no frames.
func (s *scene) Frame(k layerKind, i int) (frame, bool) {
	fs := s.frames[k]
	if len(fs) == 0 {
		return frame{}, false
	}
	return fs[min(max(i, 0), len(fs)-1)], true
}

// FrameIndex returns the index of year within k, or the nearest earlier
// year. Undated layers always return 0.
func (s *scene) FrameIndex(k layerKind, year int) int {
	idx := 0
	for i, f := range s.frames[k] {
		if f.Year <= year {
			idx = i
		}
	}
	return idx
}

// loadProbability reads every urban_probability_<year>.png in dir.
func loadProbability(dir string) ([]gridio.Layer, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "urban_probability_*.png"))
	if err != nil {
		return nil, err
	}
	var layers []gridio.Layer
	for _, p := range paths {
		var year int
		if _, err := fmt.Sscanf(filepath.Base(p), "urban_probability_%d.png", &year); err != nil {
			continue
		}
		g, err := gridio.ReadRaster(p)
		if err != nil {
			return nil, err
		}
		layers = append(layers, gridio.Layer{Year: year, Grid: g})
	}
	slices.SortFunc(layers, func(a, b gridio.Layer) int { return a.Year - b.Year })
	return layers, nil
}

func maxValue(g *raster.Grid) uint8 {
	var m uint8
	for _, v := range g.Cells() {
		m = max(m, v)
	}
	return m
}

// rampPixels maps g onto the colour ramp scaled to [0, top].
func rampPixels(g *raster.Grid, top uint8) []color.RGBA {
	scale := float32(1)
	if top > 0 {
		scale = 1 / float32(top)
	}
	cells := g.Cells()
	px := make([]color.RGBA, len(cells))
	for i, v := range cells {
		px[i] = ramp(float32(v) * scale)
	}
	return px
}

var (
	urbanColour = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	roadColour  = color.RGBA{R: 230, G: 170, B: 40, A: 255}
)

// overlay draws slope in grey, roads in amber and urban pixels in red.
// urban may be nil.
func overlay(slope, urban, roads *raster.Grid) []color.RGBA {
	top := int(maxValue(slope))
	px := make([]color.RGBA, slope.Rows*slope.Cols)
	for r := 0; r < slope.Rows; r++ {
		for c := 0; c < slope.Cols; c++ {
			i := r*slope.Cols + c
			switch {
			case urban != nil && urban.At(r, c) > 0:
				px[i] = urbanColour
			case roads.At(r, c) > 0:
				px[i] = roadColour
			default:
				y := uint8(200)
				if top > 0 {
					y = 200 - uint8(int(slope.At(r, c))*120/top)
				}
				px[i] = color.RGBA{R: y, G: y, B: y, A: 255}
			}
		}
	}
	return px
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// ramp maps v in [0,1] to a colour gradient: dark blue -> cyan -> yellow -> white
func ramp(v float32) color.RGBA {
	v = clamp01(v)
	var r, g, b uint8
	if v < 0.25 {
		// Dark blue to blue
		t := v / 0.25
		r = uint8(10 + t*30)
		g = uint8(20 + t*60)
		b = uint8(60 + t*100)
	} else if v < 0.5 {
		// Blue to cyan
		t := (v - 0.25) / 0.25
		r = uint8(40 + t*20)
		g = uint8(80 + t*120)
		b = uint8(160 + t*40)
	} else if v < 0.75 {
		// Cyan to yellow-green
		t := (v - 0.5) / 0.25
		r = uint8(60 + t*140)
		g = uint8(200 - t*40)
		b = uint8(200 - t*150)
	} else {
		// Yellow-green to white
		t := (v - 0.75) / 0.25
		r = uint8(200 + t*55)
		g = uint8(160 + t*95)
		b = uint8(50 + t*205)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
