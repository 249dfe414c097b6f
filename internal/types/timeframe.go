package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/rates-export/pkg/errors"
)

// Timeframe is the bar aggregation period. Values are the terminal's native timeframe codes,
// so they can be sent to the bridge as-is.
type Timeframe int32

const (
	TimeframeM1  Timeframe = 1
	TimeframeM5  Timeframe = 5
	TimeframeM15 Timeframe = 15
	TimeframeM30 Timeframe = 30
	TimeframeH1  Timeframe = 16385
	TimeframeH4  Timeframe = 16388
	TimeframeD1  Timeframe = 16408
	TimeframeW1  Timeframe = 32769
	TimeframeMN1 Timeframe = 49153
)

// timeframeLabels is the display label of every supported timeframe.
var timeframeLabels = map[Timeframe]string{
	TimeframeM1:  "M1",
	TimeframeM5:  "M5",
	TimeframeM15: "M15",
	TimeframeM30: "M30",
	TimeframeH1:  "H1",
	TimeframeH4:  "H4",
	TimeframeD1:  "D1",
	TimeframeW1:  "W1",
	TimeframeMN1: "MN1",
}

// AllTimeframes returns the supported timeframes ordered from the finest to the coarsest.
func AllTimeframes() []Timeframe {
	return []Timeframe{
		TimeframeM1,
		TimeframeM5,
		TimeframeM15,
		TimeframeM30,
		TimeframeH1,
		TimeframeH4,
		TimeframeD1,
		TimeframeW1,
		TimeframeMN1,
	}
}

// Label returns the display label of the timeframe.
// Unknown codes are labelled "Unknown (<code>)" instead of failing.
func (t Timeframe) Label() string {
	if label, ok := timeframeLabels[t]; ok {
		return label
	}

	return fmt.Sprintf("Unknown (%d)", int32(t))
}

func (t Timeframe) String() string {
	return t.Label()
}

// IsValid reports whether the timeframe is one of the supported codes.
func (t Timeframe) IsValid() bool {
	_, ok := timeframeLabels[t]

	return ok
}

// Duration returns the nominal length of one bar. A month counts as 30 days.
// Unknown timeframes return 0.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeM1:
		return time.Minute
	case TimeframeM5:
		return 5 * time.Minute
	case TimeframeM15:
		return 15 * time.Minute
	case TimeframeM30:
		return 30 * time.Minute
	case TimeframeH1:
		return time.Hour
	case TimeframeH4:
		return 4 * time.Hour
	case TimeframeD1:
		return 24 * time.Hour
	case TimeframeW1:
		return 7 * 24 * time.Hour
	case TimeframeMN1:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseTimeframe parses a display label (case-insensitive) or a numeric timeframe code.
func ParseTimeframe(value string) (Timeframe, error) {
	trimmed := strings.TrimSpace(value)

	for tf, label := range timeframeLabels {
		if strings.EqualFold(label, trimmed) {
			return tf, nil
		}
	}

	if code, err := strconv.ParseInt(trimmed, 10, 32); err == nil {
		tf := Timeframe(code)
		if tf.IsValid() {
			return tf, nil
		}
	}

	return 0, errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported timeframe: %q", value)
}

// ParseTimeframes parses every value with ParseTimeframe, keeping the input order.
func ParseTimeframes(values []string) ([]Timeframe, error) {
	timeframes := make([]Timeframe, 0, len(values))

	for _, value := range values {
		tf, err := ParseTimeframe(value)
		if err != nil {
			return nil, err
		}

		timeframes = append(timeframes, tf)
	}

	return timeframes, nil
}
