package otc

import "github.com/shopspring/decimal"

// pip arithmetic is done in decimal so quantized prices carry no binary residue
// beyond the final float conversion.

func pipSteps(price, pip float64) decimal.Decimal {
	return decimal.NewFromFloat(price).DivRound(decimal.NewFromFloat(pip), 8)
}

func quantize(price, pip float64) float64 {
	return pipSteps(price, pip).Round(0).Mul(decimal.NewFromFloat(pip)).InexactFloat64()
}

func quantizeFloor(price, pip float64) float64 {
	return pipSteps(price, pip).Floor().Mul(decimal.NewFromFloat(pip)).InexactFloat64()
}

func quantizeCeil(price, pip float64) float64 {
	return pipSteps(price, pip).Ceil().Mul(decimal.NewFromFloat(pip)).InexactFloat64()
}

// FormatPrice renders price with as many decimals as the pip size carries.
func FormatPrice(price, pip float64) string {
	places := -decimal.NewFromFloat(pip).Exponent()
	if places < 0 {
		places = 0
	}
	return decimal.NewFromFloat(price).StringFixed(places)
}
