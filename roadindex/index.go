// Package roadindex implements the road-pixel-only (RPO) index: a per-row
// sorted list of road columns that answers nearest-road queries without
// scanning the whole road raster.
package roadindex

import (
	"log/slog"

	"github.com/tfcollins140/sleuth3rUGM/raster"
)

// rowMeta describes the road pixels of a single raster row.
// minCol/maxCol are meaningless when count is zero.
type rowMeta struct {
	count  int
	minCol int
	maxCol int
	start  int // offset of the row's first column in Index.colPos
}

// Index is the immutable RPO structure built from one road raster.
type Index struct {
	rows, cols int
	meta       []rowMeta
	colPos     []int32 // strictly ascending within each row's partition
}

// Build scans the road raster once and records every non-zero pixel.
func Build(roads *raster.Grid) *Index {
	ix := &Index{
		rows: roads.Rows,
		cols: roads.Cols,
		meta: make([]rowMeta, roads.Rows),
	}

	cells := roads.Cells()
	for r := 0; r < roads.Rows; r++ {
		m := rowMeta{minCol: roads.Cols, maxCol: 0, start: len(ix.colPos)}
		row := cells[r*roads.Cols : (r+1)*roads.Cols]
		for c, v := range row {
			if v == 0 {
				continue
			}
			ix.colPos = append(ix.colPos, int32(c))
			if c < m.minCol {
				m.minCol = c
			}
			if c > m.maxCol {
				m.maxCol = c
			}
			m.count++
		}
		ix.meta[r] = m
	}

	return ix
}

// Rows returns the raster height the index was built for.
func (ix *Index) Rows() int { return ix.rows }

// Cols returns the raster width the index was built for.
func (ix *Index) Cols() int { return ix.cols }

// Len returns the number of road pixels.
func (ix *Index) Len() int { return len(ix.colPos) }

// RowCount returns the number of road pixels in row r.
func (ix *Index) RowCount(r int) int { return ix.meta[r].count }

// RowColumns returns the sorted road columns of row r. The slice aliases
// index storage and must not be modified.
func (ix *Index) RowColumns(r int) []int32 {
	m := ix.meta[r]
	return ix.colPos[m.start : m.start+m.count]
}

// LogValue implements slog.LogValuer.
func (ix *Index) LogValue() slog.Value {
	nonEmpty := 0
	for _, m := range ix.meta {
		if m.count > 0 {
			nonEmpty++
		}
	}
	return slog.GroupValue(
		slog.Int("rows", ix.rows),
		slog.Int("cols", ix.cols),
		slog.Int("road_pixels", len(ix.colPos)),
		slog.Int("rows_with_roads", nonEmpty),
	)
}
