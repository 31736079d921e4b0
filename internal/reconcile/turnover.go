package reconcile

import (
	"math"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

const DefaultTurnoverDecimals = 2

// Category thresholds, inclusive lower bounds.
const (
	thresholdLow       = 0.0
	thresholdMedium    = 1.0
	thresholdHigh      = 2.0
	thresholdExcellent = 3.0
)

// TurnoverCalculator computes orders/stock ratios
type TurnoverCalculator struct {
	decimals int32
	log      zerolog.Logger
}

// NewTurnoverCalculator creates a calculator rounding to decimals places
func NewTurnoverCalculator(decimals int, log *zerolog.Logger) *TurnoverCalculator {
	if decimals < 0 {
		decimals = DefaultTurnoverDecimals
	}
	return &TurnoverCalculator{
		decimals: int32(decimals),
		log:      loggerOrDefault(log).With().Str("component", "turnover").Logger(),
	}
}

// Turnover returns orders/stock rounded half-up. Negative inputs count as
// zero and zero stock yields 0 (undefined turnover is reported as zero).
func (tc *TurnoverCalculator) Turnover(orders, stock int) float64 {
	if orders < 0 {
		orders = 0
	}
	if stock <= 0 {
		return 0
	}
	ratio := decimal.NewFromInt(int64(orders)).
		Div(decimal.NewFromInt(int64(stock))).
		Round(tc.decimals)
	f, _ := ratio.Float64()
	return f
}

// TurnoverOf is Turnover for loosely typed values ("12", 3.0, nil, ...).
// Values that cannot be coerced count as zero and are logged.
func (tc *TurnoverCalculator) TurnoverOf(orders, stock interface{}) float64 {
	return tc.Turnover(tc.coerce("orders", orders), tc.coerce("stock", stock))
}

func (tc *TurnoverCalculator) coerce(field string, v interface{}) int {
	if v == nil {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		tc.log.Warn().Err(err).Str("field", field).Interface("value", v).Msg("invalid numeric input, using 0")
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		tc.log.Warn().Str("field", field).Float64("value", f).Msg("out of range input, using 0")
		return 0
	}
	return int(f)
}

// Categorize maps a turnover ratio onto a display category.
func Categorize(turnover float64) domain.TurnoverCategory {
	switch {
	case turnover <= thresholdLow:
		return domain.TurnoverNoMovement
	case turnover < thresholdMedium:
		return domain.TurnoverLow
	case turnover < thresholdHigh:
		return domain.TurnoverMedium
	case turnover < thresholdExcellent:
		return domain.TurnoverHigh
	default:
		return domain.TurnoverExcellent
	}
}

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	f, _ := decimal.NewFromFloat(v).Round(int32(decimals)).Float64()
	return f
}
