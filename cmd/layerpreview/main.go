// Layer preview tool - interactive view of a scenario's input rasters and
// predicted urban probability, with a layer selector and a year slider.
//
// Usage: go run ./cmd/layerpreview -config scenario.yaml
//
//	go run ./cmd/layerpreview -config scenario.yaml -layer urban -year 1990 -export urban.png
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/tfcollins140/sleuth3rUGM/config"
	"github.com/tfcollins140/sleuth3rUGM/gridio"
)

const (
	windowWidth  = 1000
	windowHeight = 640
	previewSize  = 560
	panelWidth   = windowWidth - previewSize - 40
)

func main() {
	configPath := flag.String("config", "", "Path to scenario YAML (empty = use defaults)")
	inputDir := flag.String("input-dir", "", "Directory holding the input rasters (empty = use config)")
	probDir := flag.String("probability", "", "Directory holding urban_probability_<year>.png (empty = scenario output dir)")
	layerName := flag.String("layer", "urban", "Initial layer: slope, excluded, roads, urban or probability")
	year := flag.Int("year", 0, "Initial year (0 = earliest)")
	exportPath := flag.String("export", "", "Render the selected layer to this PNG and exit")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *inputDir != "" {
		cfg.Scenario.InputDir = *inputDir
	}
	if *probDir == "" {
		*probDir = cfg.Scenario.OutputDir
	}
	layer, err := parseLayer(*layerName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	repo, err := gridio.Load(cfg.Scenario.InputDir, cfg.Inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load inputs: %v\n", err)
		os.Exit(1)
	}
	var prob []gridio.Layer
	if *probDir != "" {
		if prob, err = loadProbability(*probDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load probability rasters: %v\n", err)
			os.Exit(1)
		}
	}
	sc, err := buildScene(repo, prob)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	slog.Info("layers loaded", "rows", repo.Rows, "cols", repo.Cols,
		"excluded_pixels", repo.ExcludedPixels(), "urban_years", len(repo.Urban()),
		"road_years", len(repo.Roads()), "probability_years", len(prob))

	idx := sc.FrameIndex(layer, *year)
	if *exportPath != "" {
		if err := exportHeadless(sc, layer, idx, *exportPath); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}
	run(sc, layer, idx, filepath.Dir(*configPath))
}

// newTexture allocates an RGBA texture the size of the scene.
func newTexture(sc *scene) rl.Texture2D {
	img := rl.GenImageColor(sc.Cols, sc.Rows, rl.Black)
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.SetTextureFilter(tex, rl.FilterPoint)
	return tex
}

// showFrame uploads frame idx of layer, or black when the layer is empty.
func showFrame(tex rl.Texture2D, sc *scene, layer layerKind, idx int) (frame, bool) {
	f, ok := sc.Frame(layer, idx)
	if !ok {
		rl.UpdateTexture(tex, make([]color.RGBA, sc.Rows*sc.Cols))
		return f, false
	}
	rl.UpdateTexture(tex, f.Pixels)
	return f, true
}

// exportTexture writes the texture to a PNG.
func exportTexture(tex rl.Texture2D, path string) error {
	img := rl.LoadImageFromTexture(tex)
	ok := rl.ExportImage(*img, path)
	rl.UnloadImage(img)
	if !ok {
		return fmt.Errorf("failed to export %s", path)
	}
	return nil
}

func exportHeadless(sc *scene, layer layerKind, idx int, path string) error {
	if _, ok := sc.Frame(layer, idx); !ok {
		return fmt.Errorf("layer %s has no rasters", layer)
	}

	// Initialize raylib with hidden window
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(int32(sc.Cols), int32(sc.Rows), "Layer Preview")
	defer rl.CloseWindow()

	tex := newTexture(sc)
	defer rl.UnloadTexture(tex)
	f, _ := showFrame(tex, sc, layer, idx)

	if err := exportTexture(tex, path); err != nil {
		return err
	}
	fmt.Printf("Layer %s %d rendered to: %s (%dx%d)\n", layer, f.Year, path, sc.Cols, sc.Rows)
	return nil
}

// fitPreview scales rows×cols into the preview square, keeping the aspect.
func fitPreview(rows, cols int) (w, h float32) {
	if rows == 0 || cols == 0 {
		return 0, 0
	}
	if cols >= rows {
		return previewSize, previewSize * float32(rows) / float32(cols)
	}
	return previewSize * float32(cols) / float32(rows), previewSize
}

func run(sc *scene, layer layerKind, idx int, exportDir string) {
	rl.InitWindow(windowWidth, windowHeight, "Layer Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	tex := newTexture(sc)
	defer rl.UnloadTexture(tex)

	cur, hasFrame := showFrame(tex, sc, layer, idx)
	w, h := fitPreview(sc.Rows, sc.Cols)
	status := ""

	for !rl.WindowShouldClose() {
		needsUpload := false

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		// Draw preview
		rl.DrawTexturePro(
			tex,
			rl.Rectangle{X: 0, Y: 0, Width: float32(sc.Cols), Height: float32(sc.Rows)},
			rl.Rectangle{X: 10, Y: 10, Width: w, Height: h},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, int32(w), int32(h), rl.DarkGray)
		if !hasFrame {
			rl.DrawText(fmt.Sprintf("no %s rasters", layer), 30, 30, 20, rl.LightGray)
		}

		// Control panel
		panelX := float32(previewSize + 30)
		panelY := float32(10)

		rl.DrawText("Layer", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 30
		toggleW := float32(panelWidth) / float32(numLayers)
		newLayer := layerKind(gui.ToggleGroup(
			rl.Rectangle{X: panelX, Y: panelY, Width: toggleW - 2, Height: 28},
			toggleText(), int32(layer),
		))
		if newLayer != layer {
			// keep the year when switching between dated layers
			idx = sc.FrameIndex(newLayer, cur.Year)
			layer = newLayer
			needsUpload = true
		}
		panelY += 50

		frames := sc.Frames(layer)
		rl.DrawText("Year", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 28
		if len(frames) > 1 {
			first, last := frames[0].Year, frames[len(frames)-1].Year
			newIdx := gui.SliderBar(
				rl.Rectangle{X: panelX + 40, Y: panelY, Width: float32(panelWidth - 130), Height: 20},
				fmt.Sprintf("%d", first), fmt.Sprintf("%d", last),
				float32(idx), 0, float32(len(frames)-1),
			)
			if i := int(newIdx + 0.5); i != idx {
				idx = i
				needsUpload = true
			}
		}
		label := "-"
		if hasFrame && cur.Year != 0 {
			label = fmt.Sprintf("%d", cur.Year)
		}
		rl.DrawText(label, int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		panelY += 40

		rl.DrawText(fmt.Sprintf("%d x %d pixels, %d frames", sc.Cols, sc.Rows, len(frames)),
			int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 30

		// Legend
		switch layer {
		case layerRoads, layerUrban:
			rl.DrawRectangle(int32(panelX), int32(panelY), 14, 14, urbanColour)
			rl.DrawText("urban", int32(panelX+20), int32(panelY), 14, rl.Gray)
			rl.DrawRectangle(int32(panelX+90), int32(panelY), 14, 14, roadColour)
			rl.DrawText("road", int32(panelX+110), int32(panelY), 14, rl.Gray)
		default:
			for i := 0; i < 100; i++ {
				rl.DrawRectangle(int32(panelX)+int32(i*2), int32(panelY), 2, 14, ramp(float32(i)/99))
			}
			rl.DrawText("low", int32(panelX), int32(panelY+18), 12, rl.Gray)
			rl.DrawText("high", int32(panelX+170), int32(panelY+18), 12, rl.Gray)
		}
		panelY += 50

		// Export
		exportPressed := gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 140, Height: 30}, "Export PNG")
		if (exportPressed || rl.IsKeyPressed(rl.KeyE)) && hasFrame {
			name := layer.String() + ".png"
			if cur.Year != 0 {
				name = fmt.Sprintf("%s_%d.png", layer, cur.Year)
			}
			path := filepath.Join(exportDir, name)
			if err := exportTexture(tex, path); err != nil {
				status = err.Error()
			} else {
				status = "saved " + path
			}
		}
		panelY += 40
		rl.DrawText(status, int32(panelX), int32(panelY), 14, rl.Gray)

		// Instructions
		rl.DrawText("Left/Right step years, E exports", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyRight) && idx < len(frames)-1 {
			idx++
			needsUpload = true
		}
		if rl.IsKeyPressed(rl.KeyLeft) && idx > 0 {
			idx--
			needsUpload = true
		}

		rl.EndDrawing()

		if needsUpload {
			cur, hasFrame = showFrame(tex, sc, layer, idx)
		}
	}
}
