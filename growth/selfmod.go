package growth

// SelfModification adjusts coefficients between years according to the
// growth rate. Fast growth (boom) lowers slope resistance and amplifies the
// dispersive coefficients; slow growth (bust) does the reverse.
type SelfModification struct {
	Enabled                bool    `yaml:"enabled" json:"enabled"`
	CriticalLow            float64 `yaml:"critical_low" json:"critical_low"`
	CriticalHigh           float64 `yaml:"critical_high" json:"critical_high"`
	Boom                   float64 `yaml:"boom" json:"boom"`
	Bust                   float64 `yaml:"bust" json:"bust"`
	SlopeSensitivity       float64 `yaml:"slope_sensitivity" json:"slope_sensitivity"`
	RoadGravitySensitivity float64 `yaml:"road_gravity_sensitivity" json:"road_gravity_sensitivity"`
}

// DefaultSelfModification returns the classic boom/bust settings, enabled.
func DefaultSelfModification() SelfModification {
	return SelfModification{
		Enabled:                true,
		CriticalLow:            0.97,
		CriticalHigh:           1.3,
		Boom:                   1.01,
		Bust:                   0.09,
		SlopeSensitivity:       0.1,
		RoadGravitySensitivity: 0.01,
	}
}

// Apply returns the coefficients for the next year given this year's growth
// rate and percent urban. Disabled settings return c unchanged.
func (m SelfModification) Apply(c Coefficients, growthRate, percentUrban float64) Coefficients {
	if !m.Enabled {
		return c
	}

	switch {
	case growthRate > m.CriticalHigh:
		c.SlopeResistance -= percentUrban * m.SlopeSensitivity
		if c.SlopeResistance <= 0 {
			c.SlopeResistance = 1
		}
		c.RoadGravity = min(c.RoadGravity+percentUrban*m.RoadGravitySensitivity, MaxCoefficient)
		if c.Diffusion < MaxCoefficient {
			c.Diffusion = min(c.Diffusion*m.Boom, MaxCoefficient)
			c.Breed = min(c.Breed*m.Boom, MaxCoefficient)
			c.Spread = min(c.Spread*m.Boom, MaxCoefficient)
		}

	case growthRate < m.CriticalLow:
		c.SlopeResistance = min(c.SlopeResistance+percentUrban*m.SlopeSensitivity, MaxCoefficient)
		c.RoadGravity -= percentUrban * m.RoadGravitySensitivity
		if c.RoadGravity <= 0 {
			c.RoadGravity = 1
		}
		if c.Diffusion > 0 {
			c.Diffusion = floorOne(c.Diffusion * m.Bust)
			c.Spread = floorOne(c.Spread * m.Bust)
			c.Breed = floorOne(c.Breed * m.Bust)
		}
	}
	return c
}

func floorOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
