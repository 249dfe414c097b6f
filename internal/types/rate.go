package types

import "time"

// Rate is a raw bar record as returned by a source. Time is expressed in epoch seconds.
type Rate struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	TickVolume int64   `json:"tick_volume"`
	Spread     int32   `json:"spread"`
	RealVolume float64 `json:"real_volume"`
}

// Bar is a Rate whose time has been converted to an absolute UTC timestamp.
type Bar struct {
	Time       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	TickVolume int64
	Spread     int32
	RealVolume float64
}

// ToBar converts the epoch-seconds rate into a Bar.
func (r Rate) ToBar() Bar {
	return Bar{
		Time:       time.Unix(r.Time, 0).UTC(),
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		TickVolume: r.TickVolume,
		Spread:     r.Spread,
		RealVolume: r.RealVolume,
	}
}

// TaggedBar is a Bar labelled with the series it belongs to.
type TaggedBar struct {
	Bar
	// Ticket is the symbol the bar was fetched for.
	Ticket string
	// Timeframe is the display label of the bar's timeframe.
	Timeframe string
}

// DatasetColumns is the column order of a persisted dataset.
var DatasetColumns = []string{
	"time",
	"open",
	"high",
	"low",
	"close",
	"tick_volume",
	"spread",
	"real_volume",
	"ticket",
	"timeframe",
}
