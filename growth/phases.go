package growth

import (
	"fmt"

	"github.com/tfcollins140/sleuth3rUGM/raster"
)

func (e *Engine) advance(from, to stage) error {
	if e.stage != from {
		return fmt.Errorf("%w: expected stage %d, at %d", ErrPhaseOrder, from, e.stage)
	}
	e.stage = to
	return nil
}

// SpontaneousAndSpread runs spontaneous growth and the new spreading centres
// it breeds. Random interior pixels are tried; each success may, with
// probability breed/101, claim up to MinNeighborsToSpread of its neighbours
// within eight attempts.
func (e *Engine) SpontaneousAndSpread() error {
	if err := e.advance(stageReset, stageSpread); err != nil {
		return err
	}
	e.mark(PhaseSpread)

	g := e.state.Z
	dv := DiffusionValue(e.coeffs.Diffusion, g.Rows, g.Cols, e.opts.AuxDiffusionMult)
	for range 1 + int(dv) {
		p := raster.Point{Row: e.rng.UniformInt(g.Rows)}
		p.Col = e.rng.UniformInt(g.Cols)
		if !g.Interior(p.Row, p.Col) {
			continue
		}
		if !e.Urbanize(p, TagSpontaneous, &e.counts.Spontaneous).OK() {
			continue
		}
		if e.rng.UniformInt(int(MaxCoefficient)+1) >= int(e.coeffs.Breed) {
			continue
		}
		claimed := 0
		for range 8 {
			if _, o, ok := e.UrbanizeNeighbor(p, TagSpread, &e.counts.Spread); ok && o.OK() {
				claimed++
				if claimed == e.opts.MinNeighborsToSpread {
					break
				}
			}
		}
	}
	return nil
}

// Organic grows edges of existing urban areas. Each interior urban pixel of
// the run is, with probability spread/101, examined; if it has between two
// and seven urban neighbours one random neighbour is tried.
func (e *Engine) Organic() error {
	if err := e.advance(stageSpread, stageOrganic); err != nil {
		return err
	}
	e.mark(PhaseOrganic)

	g := e.state.Z
	// The cumulative list only grows at commit, so this range is stable.
	for _, p := range e.state.Cumulative() {
		if !g.Interior(p.Row, p.Col) {
			continue
		}
		if g.At(p.Row, p.Col) == 0 {
			continue
		}
		if float64(e.rng.UniformInt(int(MaxCoefficient)+1)) >= e.coeffs.Spread {
			continue
		}
		n := g.CountNeighborsAbove(p.Row, p.Col, 0)
		if n < 2 || n >= len(raster.Walkabout) {
			continue
		}
		o := raster.Walkabout[e.rng.UniformInt(len(raster.Walkabout))]
		e.Urbanize(raster.Point{Row: p.Row + o.Row, Col: p.Col + o.Col}, TagOrganic, &e.counts.Organic)
	}
	return nil
}

// RoadInfluenced runs road trips from pixels claimed earlier this year. Each
// trip finds the nearest road within the road-gravity reach, walks along the
// road network and, when the walk ends in spreading, claims a neighbour of
// the endpoint and up to three neighbours of that pixel.
func (e *Engine) RoadInfluenced() error {
	if err := e.advance(stageOrganic, stageRoad); err != nil {
		return err
	}
	e.mark(PhaseRoad)

	growth := e.state.Growth()
	fixed := len(growth)
	if fixed == 0 {
		return nil
	}

	g := e.state.Z
	trips := RoadBreedValue(e.coeffs.Breed, e.opts.AuxBreedCoeff)
	for range 1 + int(trips) {
		gv := RoadGravityValue(e.coeffs.RoadGravity, g.Rows, g.Cols)
		budget := SearchBudget(gv, g.Rows, g.Cols)

		origin := growth[int(float64(fixed)*e.rng.UniformFloat01())]
		res, err := e.roadIx.FindNearest(origin, budget)
		if err != nil {
			return fmt.Errorf("road search from %v: %w", origin, err)
		}
		if !res.Found {
			continue
		}

		walkDiff := RoadDiffusionValue(e.coeffs.Diffusion, e.opts.AuxDiffusionCoeff)
		end, spread := e.roadWalk(res.Point, walkDiff)
		if !spread {
			continue
		}
		nb, o, ok := e.UrbanizeNeighbor(end, TagRoad, &e.counts.Road)
		if !ok || !o.OK() {
			continue
		}
		for range 3 {
			e.UrbanizeNeighbor(nb, TagRoad, &e.counts.Road)
		}
	}
	return nil
}

// roadWalk moves from start along adjacent road pixels. Each step rotates
// around the ring from a random start and takes the first in-image road
// neighbour. The walk spreads once the run length exceeds the current road
// pixel's value scaled by diffusion; it stops without spreading at a dead
// end.
func (e *Engine) roadWalk(start raster.Point, diffusion float64) (raster.Point, bool) {
	roads := e.layers.Roads
	cur := start
	run := 0
	for {
		moved := false
		k := e.rng.UniformInt(len(raster.Ring))
		for range len(raster.Ring) {
			r, c := raster.RingNeighbor(cur.Row, cur.Col, k)
			k++
			if roads.InBounds(r, c) && roads.At(r, c) != 0 {
				cur = raster.Point{Row: r, Col: c}
				run++
				moved = true
				break
			}
		}
		limit := int(float64(roads.At(cur.Row, cur.Col)) / MaxRoadValue * diffusion)
		if run > limit {
			return cur, true
		}
		if !moved {
			return cur, false
		}
	}
}
