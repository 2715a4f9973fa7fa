package services

import "github.com/shopspring/decimal"

// Fixed deposit rate: ₦100 buys 10 UC. Initialize and the webhook both go
// through these functions so the pending and credited amounts agree.
var (
	nairaPerUC   = decimal.NewFromInt(10)
	koboPerNaira = decimal.NewFromInt(100)

	// keeps kobo amounts well inside int64
	maxDepositNaira = decimal.NewFromInt(10_000_000)
)

// NairaToKobo converts a naira amount to the provider's minor unit,
// dropping fractions of a kobo.
func NairaToKobo(naira decimal.Decimal) int64 {
	return naira.Mul(koboPerNaira).Floor().IntPart()
}

// NairaToUC rounds down to whole UC.
func NairaToUC(naira decimal.Decimal) int64 {
	return naira.Div(nairaPerUC).Floor().IntPart()
}

func KoboToUC(kobo int64) int64 {
	return NairaToUC(KoboToNaira(kobo))
}

func KoboToNaira(kobo int64) decimal.Decimal {
	return decimal.NewFromInt(kobo).Div(koboPerNaira)
}
