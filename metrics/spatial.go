// Package metrics measures urban rasters and scores simulated trajectories
// against historical observations.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/tfcollins140/sleuth3rUGM/raster"
)

var (
	// ErrNoClusters is returned when a raster with urban pixels yields no
	// clusters from the pixel list it was measured with.
	ErrNoClusters = errors.New("no clusters found for non-zero population")
	// ErrQueueOverflow is returned when the flood-fill queue exceeds its configured limit.
	ErrQueueOverflow = errors.New("cluster queue overflow")
	// ErrZeroPopulation is returned when a statistic needs at least one urban pixel.
	ErrZeroPopulation = errors.New("zero population")
)

// Spatial holds the per-raster measurements.
type Spatial struct {
	Area            int
	Edges           int
	Clusters        int
	Pop             int
	XMean           float64
	YMean           float64
	Rad             float64
	Slope           float64
	MeanClusterSize float64
}

// Meter measures rasters of a fixed shape, reusing its scratch buffers.
type Meter struct {
	rows, cols int
	queueLimit int
	visited    []bool
	queue      []raster.Point
	scan       []raster.Point
}

// NewMeter creates a meter for rows×cols rasters. A positive queueLimit caps
// the flood-fill queue; zero lets it grow.
func NewMeter(rows, cols, queueLimit int) *Meter {
	return &Meter{
		rows:       rows,
		cols:       cols,
		queueLimit: queueLimit,
		visited:    make([]bool, rows*cols),
	}
}

// Measure computes area, edges, clusters, centroid, radius and mean slope of
// z. urban lists the urban pixels of z when the caller tracks them; pass nil
// to scan the whole raster.
func (m *Meter) Measure(z *raster.Grid, urban []raster.Point, slope *raster.Grid) (Spatial, error) {
	if z.Rows != m.rows || z.Cols != m.cols || !z.SameShape(slope) {
		return Spatial{}, fmt.Errorf("measure: raster %dx%d, slope %dx%d, meter %dx%d",
			z.Rows, z.Cols, slope.Rows, slope.Cols, m.rows, m.cols)
	}
	if urban == nil {
		m.scan = m.scan[:0]
		for i, v := range z.Cells() {
			if v != 0 {
				m.scan = append(m.scan, raster.Point{Row: i / z.Cols, Col: i % z.Cols})
			}
		}
		urban = m.scan
	}

	var s Spatial
	s.Area, s.Edges = Edges(z, urban)

	clusters, pop, err := m.clusters(z, urban, z.CountNonZero())
	if err != nil {
		return Spatial{}, err
	}
	s.Clusters, s.Pop = clusters, pop
	if clusters > 0 {
		s.MeanClusterSize = float64(pop) / float64(clusters)
	}

	c, err := Circle(z, urban, slope)
	if err != nil {
		return Spatial{}, err
	}
	s.XMean, s.YMean, s.Slope, s.Rad = c.XMean, c.YMean, c.Slope, c.Rad
	return s, nil
}

// Edges returns the number of urban pixels among pts and how many of them
// touch a non-urban 4-neighbour inside the image.
func Edges(z *raster.Grid, pts []raster.Point) (area, edges int) {
	for _, p := range pts {
		if z.At(p.Row, p.Col) == 0 {
			continue
		}
		area++
		for _, o := range raster.Orthogonal {
			r, c := p.Row+o.Row, p.Col+o.Col
			if z.InBounds(r, c) && z.At(r, c) == 0 {
				edges++
				break
			}
		}
	}
	return area, edges
}

// ClusterSizes labels 4-connected urban components of z and returns their
// sizes in discovery order. queueLimit > 0 bounds the work queue.
func ClusterSizes(z *raster.Grid, queueLimit int) ([]int, error) {
	m := NewMeter(z.Rows, z.Cols, queueLimit)
	var sizes []int
	err := m.flood(z, z.PointsAtLeast(1), func(size int) { sizes = append(sizes, size) })
	return sizes, err
}

// clusters floods from urban. resident is the raster's own urban pixel
// count; a list that reaches none of them is out of step with z.
func (m *Meter) clusters(z *raster.Grid, urban []raster.Point, resident int) (count, pop int, err error) {
	err = m.flood(z, urban, func(size int) {
		count++
		pop += size
	})
	if err != nil {
		return 0, 0, err
	}
	if count == 0 && resident > 0 {
		return 0, 0, fmt.Errorf("%w: population %d, %d listed pixels", ErrNoClusters, resident, len(urban))
	}
	return count, pop, nil
}

// flood runs a breadth-first fill from every unvisited urban pixel and
// reports each component size. Visited marks are cleared before returning.
func (m *Meter) flood(z *raster.Grid, urban []raster.Point, emit func(size int)) error {
	cols := z.Cols
	defer func() {
		for _, p := range urban {
			m.visited[p.Row*cols+p.Col] = false
		}
	}()

	for _, start := range urban {
		i := start.Row*cols + start.Col
		if m.visited[i] || z.Cells()[i] == 0 {
			continue
		}
		m.visited[i] = true
		m.queue = append(m.queue[:0], start)
		size := 0
		for head := 0; head < len(m.queue); head++ {
			p := m.queue[head]
			size++
			for _, o := range raster.Orthogonal {
				r, c := p.Row+o.Row, p.Col+o.Col
				if !z.InBounds(r, c) {
					continue
				}
				j := r*cols + c
				if m.visited[j] || z.Cells()[j] == 0 {
					continue
				}
				m.visited[j] = true
				m.queue = append(m.queue, raster.Point{Row: r, Col: c})
				if m.queueLimit > 0 && len(m.queue)-head > m.queueLimit {
					return fmt.Errorf("%w: %d pending entries, limit %d", ErrQueueOverflow, len(m.queue)-head, m.queueLimit)
				}
			}
		}
		emit(size)
	}
	return nil
}

// CircleStats are the centroid, equivalent radius and mean slope of a footprint.
type CircleStats struct {
	XMean float64
	YMean float64
	Rad   float64
	Slope float64
}

// Circle computes the mean column (x), mean row (y), the radius of a circle
// with the same area, and the mean slope over the urban pixels of z.
func Circle(z *raster.Grid, pts []raster.Point, slope *raster.Grid) (CircleStats, error) {
	var c CircleStats
	n := 0
	var slopeSum float64
	for _, p := range pts {
		if z.At(p.Row, p.Col) == 0 {
			continue
		}
		slopeSum += float64(slope.At(p.Row, p.Col))
		c.XMean += float64(p.Col)
		c.YMean += float64(p.Row)
		n++
	}
	if n == 0 {
		return CircleStats{}, fmt.Errorf("circle: %w", ErrZeroPopulation)
	}
	c.XMean /= float64(n)
	c.YMean /= float64(n)
	c.Slope = slopeSum / float64(n)
	c.Rad = math.Sqrt(float64(n) / math.Pi)
	return c, nil
}

// PercentUrban is urban plus road pixels as a percentage of the land that is
// neither road nor excluded.
func PercentUrban(pop, roadPixels, excludedPixels, totalPixels int) float64 {
	land := totalPixels - roadPixels - excludedPixels
	if land <= 0 {
		return 0
	}
	return 100 * float64(pop+roadPixels) / float64(land)
}

// PercentRoad is road pixels as a percentage of the non-excluded area.
func PercentRoad(roadPixels, excludedPixels, totalPixels int) float64 {
	area := totalPixels - excludedPixels
	if area <= 0 {
		return 0
	}
	return 100 * float64(roadPixels) / float64(area)
}

// GrowthRate is the year's new pixels as a percentage of population.
func GrowthRate(numGrowth, pop int) float64 {
	if pop == 0 {
		return 0
	}
	return float64(numGrowth) / float64(pop) * 100
}
