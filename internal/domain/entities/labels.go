package entities

import (
	"strconv"
	"strings"

	"github.com/zatekoja/facetedsearch/pkg/utils"
)

// DefaultCurrencySymbol prefixes price labels when no currency is given
const DefaultCurrencySymbol = "$"

const dateLabelLayout = "Jan _2, 2006"

// LabelFromQuery renders a numeric range token as a label, e.g. [6 TO 10] -> 6 to 10
func LabelFromQuery(query string) string {
	return strings.ToLower(strings.Trim(query, "[]"))
}

// PriceLabelFromQuery renders a price range token with a currency symbol.
// The wildcard reads as 0 on the left and as maxPrice on the right.
func PriceLabelFromQuery(query, symbol string, maxPrice int) string {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	inner := strings.Trim(query, "[]")
	low, high, found := strings.Cut(inner, " TO ")
	if !found {
		return symbol + LabelFromQuery(query)
	}
	if low == utils.RangeWildcard {
		low = "0"
	}
	if high == utils.RangeWildcard {
		high = strconv.Itoa(maxPrice)
	}
	return symbol + low + " to " + high
}

// DateLabelFromQuery renders a YYYY-MM-DD-YYYY-MM-DD token as
// "Dec  1, 2012 to Dec 15, 2012". Unparsable tokens are returned as-is.
func DateLabelFromQuery(query string) string {
	start, end, ok := utils.ParseDateRange(query)
	if !ok {
		return query
	}
	return start.Format(dateLabelLayout) + " to " + end.Format(dateLabelLayout)
}
