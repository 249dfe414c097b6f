package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/rates-export/internal/types"
)

// DataGenerator generates realistic terminal rate records for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how rates are generated.
type GeneratorConfig struct {
	// StartTime is the open time of the first bar
	StartTime time.Time
	// Timeframe sets the distance between bars
	Timeframe types.Timeframe
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement per bar (0.002 = 0.2%)
	Volatility float64
	// TickVolumeBase is the average number of ticks per bar
	TickVolumeBase int64
	// MaxSpread is the upper bound of the spread in points
	MaxSpread int32
	// RealVolumeBase is the average traded volume per bar
	RealVolumeBase float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		Timeframe:      types.TimeframeM1,
		Count:          1000,
		InitialPrice:   5000.0,
		Volatility:     0.002,
		TickVolumeBase: 500,
		MaxSpread:      5,
		RealVolumeBase: 10000,
	}
}

// Generate creates rates following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Rate {
	interval := config.Timeframe.Duration()
	if interval <= 0 {
		interval = time.Minute
	}

	rates := make([]types.Rate, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normally distributed step
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		close := open * (1 + config.Volatility*z)
		if close <= 0 {
			close = open * 0.99
		}

		high := math.Max(open, close) + math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		low := math.Min(open, close) - math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		var spread int32
		if config.MaxSpread > 0 {
			spread = g.rng.Int31n(config.MaxSpread + 1)
		}

		rates[i] = types.Rate{
			Time:       currentTime.Unix(),
			Open:       roundToDecimals(open, 4),
			High:       roundToDecimals(high, 4),
			Low:        roundToDecimals(low, 4),
			Close:      roundToDecimals(close, 4),
			TickVolume: config.TickVolumeBase/2 + g.rng.Int63n(config.TickVolumeBase+1),
			Spread:     spread,
			RealVolume: roundToDecimals(config.RealVolumeBase*(0.5+g.rng.Float64()), 2),
		}

		currentPrice = close
		currentTime = currentTime.Add(interval)
	}

	return rates
}

// GenerateSeries is a convenience function generating count bars of timeframe with a fixed seed.
func GenerateSeries(timeframe types.Timeframe, count int) []types.Rate {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Timeframe = timeframe
	config.Count = count

	return gen.Generate(config)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
