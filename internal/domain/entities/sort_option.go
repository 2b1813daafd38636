package entities

// SortLink is one rendered sort option
type SortLink struct {
	URL      string `json:"url"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// OrderParam is the URL parameter carrying an explicit sort order
const OrderParam = "order_by"

// OrderToken renders a sort field in the URL convention, '-' meaning descending
func OrderToken(field string, reverse bool) string {
	if reverse {
		return "-" + field
	}
	return field
}

// ParseOrderToken splits an order_by value into its field and direction
func ParseOrderToken(token string) (field string, reverse bool) {
	if len(token) > 0 && token[0] == '-' {
		return token[1:], true
	}
	return token, false
}
