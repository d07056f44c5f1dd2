// Package taxrates provides the static destination-region to sales-tax-rate
// lookup. Rates are flat per region; jurisdictions with no entry are tax
// free from the cart's point of view.
package taxrates

import (
	"strings"

	"github.com/shopspring/decimal"
)

// byRegion maps US state codes to their flat sales tax rate.
var byRegion = map[string]decimal.Decimal{
	"AL": decimal.RequireFromString("0.04"),
	"AR": decimal.RequireFromString("0.065"),
	"AZ": decimal.RequireFromString("0.056"),
	"CA": decimal.RequireFromString("0.0725"),
	"CO": decimal.RequireFromString("0.029"),
	"CT": decimal.RequireFromString("0.0635"),
	"FL": decimal.RequireFromString("0.06"),
	"GA": decimal.RequireFromString("0.04"),
	"HI": decimal.RequireFromString("0.04"),
	"IA": decimal.RequireFromString("0.06"),
	"ID": decimal.RequireFromString("0.06"),
	"IL": decimal.RequireFromString("0.0625"),
	"IN": decimal.RequireFromString("0.07"),
	"KS": decimal.RequireFromString("0.065"),
	"KY": decimal.RequireFromString("0.06"),
	"LA": decimal.RequireFromString("0.0445"),
	"MA": decimal.RequireFromString("0.0625"),
	"MD": decimal.RequireFromString("0.06"),
	"ME": decimal.RequireFromString("0.055"),
	"MI": decimal.RequireFromString("0.06"),
	"MN": decimal.RequireFromString("0.06875"),
	"MO": decimal.RequireFromString("0.04225"),
	"MS": decimal.RequireFromString("0.07"),
	"NC": decimal.RequireFromString("0.0475"),
	"ND": decimal.RequireFromString("0.05"),
	"NE": decimal.RequireFromString("0.055"),
	"NJ": decimal.RequireFromString("0.06625"),
	"NM": decimal.RequireFromString("0.05125"),
	"NV": decimal.RequireFromString("0.0685"),
	"NY": decimal.RequireFromString("0.08"),
	"OH": decimal.RequireFromString("0.0575"),
	"OK": decimal.RequireFromString("0.045"),
	"PA": decimal.RequireFromString("0.06"),
	"RI": decimal.RequireFromString("0.07"),
	"SC": decimal.RequireFromString("0.06"),
	"SD": decimal.RequireFromString("0.045"),
	"TN": decimal.RequireFromString("0.07"),
	"TX": decimal.RequireFromString("0.0625"),
	"UT": decimal.RequireFromString("0.061"),
	"VA": decimal.RequireFromString("0.053"),
	"VT": decimal.RequireFromString("0.06"),
	"WA": decimal.RequireFromString("0.065"),
	"WI": decimal.RequireFromString("0.05"),
	"WV": decimal.RequireFromString("0.06"),
	"WY": decimal.RequireFromString("0.04"),
}

// RateFor returns the tax rate for the given region code, case-insensitively.
// Unknown regions (including the no-sales-tax states) return zero.
func RateFor(region string) decimal.Decimal {
	if rate, ok := byRegion[strings.ToUpper(region)]; ok {
		return rate
	}
	return decimal.Zero
}

// Known reports whether the region has an entry in the table.
func Known(region string) bool {
	_, ok := byRegion[strings.ToUpper(region)]
	return ok
}
