package gridio

import (
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/tfcollins140/sleuth3rUGM/config"
	"github.com/tfcollins140/sleuth3rUGM/raster"
)

func greyPalette() color.Palette {
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.RGBA{R: uint8(i), G: uint8(i), B: uint8(i), A: 255}
	}
	return pal
}

func writeGIF(t *testing.T, path string, rows [][]uint8) {
	t.Helper()
	writePalettedGIF(t, path, rows, greyPalette())
}

func writePalettedGIF(t *testing.T, path string, rows [][]uint8, pal color.Palette) {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, len(rows[0]), len(rows)), pal)
	for y, row := range rows {
		for x, v := range row {
			img.SetColorIndex(x, y, v)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gif.Encode(f, img, &gif.Options{NumColors: 256}); err != nil {
		t.Fatal(err)
	}
}

func TestReadRasterGIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slope.gif")
	writeGIF(t, path, [][]uint8{{0, 5, 200}, {100, 1, 0}})

	g, err := ReadRaster(path)
	if err != nil {
		t.Fatalf("ReadRaster: %v", err)
	}
	if g.Rows != 2 || g.Cols != 3 {
		t.Fatalf("shape %dx%d, want 2x3", g.Rows, g.Cols)
	}
	want := []uint8{0, 5, 200, 100, 1, 0}
	for i, v := range g.Cells() {
		if v != want[i] {
			t.Errorf("cell %d = %d, want %d", i, v, want[i])
		}
	}
}

func TestReadRasterPaletteIndex(t *testing.T) {
	// colours unrelated to the index, as in a classed land-use GIF
	pal := color.Palette{
		color.RGBA{R: 250, G: 250, B: 250, A: 255},
		color.RGBA{R: 0, G: 128, B: 0, A: 255},
		color.RGBA{R: 200, G: 30, B: 30, A: 255},
		color.RGBA{R: 10, G: 10, B: 220, A: 255},
	}
	path := filepath.Join(t.TempDir(), "excluded.gif")
	writePalettedGIF(t, path, [][]uint8{{0, 1}, {2, 3}}, pal)

	g, err := ReadRaster(path)
	if err != nil {
		t.Fatalf("ReadRaster: %v", err)
	}
	want := []uint8{0, 1, 2, 3}
	for i, v := range g.Cells() {
		if v != want[i] {
			t.Errorf("cell %d = %d, want palette index %d", i, v, want[i])
		}
	}

	img := image.NewPaletted(image.Rect(0, 0, 2, 1), pal)
	img.SetColorIndex(1, 0, 2)
	if got := FromImage(img).At(0, 1); got != 2 {
		t.Errorf("FromImage = %d, want index 2 not red channel", got)
	}
}

func TestWriteReadPNG(t *testing.T) {
	g := raster.FromRows([][]uint8{{1, 2}, {3, 250}})
	path := filepath.Join(t.TempDir(), "z.png")
	if err := WriteRaster(path, g); err != nil {
		t.Fatalf("WriteRaster: %v", err)
	}
	back, err := ReadRaster(path)
	if err != nil {
		t.Fatalf("ReadRaster: %v", err)
	}
	for i, v := range back.Cells() {
		if v != g.Cells()[i] {
			t.Errorf("cell %d = %d, want %d", i, v, g.Cells()[i])
		}
	}
}

func TestLoadRepository(t *testing.T) {
	dir := t.TempDir()
	blank := [][]uint8{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	writeGIF(t, filepath.Join(dir, "slope.gif"), blank)
	writeGIF(t, filepath.Join(dir, "excl.gif"), [][]uint8{{100, 0, 0}, {0, 50, 0}, {0, 0, 255}})
	writeGIF(t, filepath.Join(dir, "u70.gif"), [][]uint8{{0, 0, 0}, {0, 1, 0}, {0, 0, 0}})
	writeGIF(t, filepath.Join(dir, "u90.gif"), [][]uint8{{0, 1, 0}, {1, 1, 0}, {0, 0, 0}})
	writeGIF(t, filepath.Join(dir, "r60.gif"), [][]uint8{{1, 0, 0}, {0, 0, 0}, {0, 0, 0}})
	writeGIF(t, filepath.Join(dir, "r80.gif"), [][]uint8{{1, 1, 1}, {0, 0, 0}, {0, 0, 0}})

	repo, err := Load(dir, config.InputsConfig{
		Slope:    "slope.gif",
		Excluded: "excl.gif",
		Urban:    []config.LayerFile{{Year: 1990, File: "u90.gif"}, {Year: 1970, File: "u70.gif"}},
		Roads:    []config.LayerFile{{Year: 1960, File: "r60.gif"}, {Year: 1980, File: "r80.gif"}},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if repo.Seed().Year != 1970 {
		t.Errorf("seed year = %d, want 1970", repo.Seed().Year)
	}
	if i, ok := repo.UrbanIndex(1990); !ok || i != 1 {
		t.Errorf("UrbanIndex(1990) = %d, %v", i, ok)
	}
	if _, ok := repo.UrbanIndex(1980); ok {
		t.Error("UrbanIndex(1980) found a non-observed year")
	}
	if got := repo.ExcludedPixels(); got != 2 {
		t.Errorf("ExcludedPixels = %d, want 2", got)
	}

	tests := []struct {
		year  int
		roads int
	}{
		{1950, 1}, // before every layer: earliest
		{1960, 1},
		{1979, 1},
		{1980, 3},
		{2020, 3},
	}
	for _, tt := range tests {
		if got := repo.RoadPixels(tt.year); got != tt.roads {
			t.Errorf("RoadPixels(%d) = %d, want %d", tt.year, got, tt.roads)
		}
		if got := repo.RoadFor(tt.year).CountNonZero(); got != tt.roads {
			t.Errorf("RoadFor(%d) has %d pixels, want %d", tt.year, got, tt.roads)
		}
	}
}

func TestNewRepositoryShapeMismatch(t *testing.T) {
	g := raster.New(3, 3)
	_, err := NewRepository(g, g, []Layer{{Year: 1, Grid: raster.New(3, 4)}}, []Layer{{Year: 1, Grid: g}})
	if err == nil {
		t.Error("accepted an urban layer of the wrong shape")
	}
}
