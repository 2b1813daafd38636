package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchQuery_BuildersDoNotMutateReceiver(t *testing.T) {
	base := NewSearchQuery().Narrow("region_exact:Africa")
	// Force spare capacity so an aliasing append would be visible
	base.Narrows = append(make([]string, 0, 8), base.Narrows...)

	a := base.Narrow("country_exact:Kenya")
	b := base.Narrow("country_exact:Peru")

	assert.Equal(t, []string{"region_exact:Africa"}, base.Narrows)
	assert.Equal(t, []string{"region_exact:Africa", "country_exact:Kenya"}, a.Narrows)
	assert.Equal(t, []string{"region_exact:Africa", "country_exact:Peru"}, b.Narrows)
}

func TestSearchQuery_Builders(t *testing.T) {
	start := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	q := NewSearchQuery().
		Filter("text", "safari").
		Content("safari").
		Order("-duration").
		Facet("region_exact").
		QueryFacet("duration_exact", "[6 TO 10]").
		DateFacet("departure_dates_exact", start, end, GapMonth, 1).
		Page(3, 20)

	assert.Equal(t, []Filter{{Field: "text", Value: "safari"}}, q.Filters)
	assert.Equal(t, "safari", q.Keywords)
	assert.Equal(t, []string{"-duration"}, q.OrderBy)
	assert.Equal(t, []string{"region_exact"}, q.FieldFacets)
	assert.Equal(t, []QueryFacetRequest{{Field: "duration_exact", Query: "[6 TO 10]"}}, q.QueryFacets)
	assert.Len(t, q.DateFacets, 1)
	assert.Equal(t, GapMonth, q.DateFacets[0].GapBy)
	assert.Equal(t, 40, q.Start)
	assert.Equal(t, 20, q.Rows)
}

func TestSearchQuery_PageClampsInput(t *testing.T) {
	q := NewSearchQuery().Page(0, 10)
	assert.Equal(t, 0, q.Start)
	assert.Equal(t, 10, q.Rows)
}

func TestOrderToken(t *testing.T) {
	assert.Equal(t, "-duration", OrderToken("duration", true))
	assert.Equal(t, "duration", OrderToken("duration", false))

	field, reverse := ParseOrderToken("-byName")
	assert.Equal(t, "byName", field)
	assert.True(t, reverse)

	field, reverse = ParseOrderToken("priority")
	assert.Equal(t, "priority", field)
	assert.False(t, reverse)
}

func TestExactField(t *testing.T) {
	assert.Equal(t, "region_exact", ExactField("region"))
}
