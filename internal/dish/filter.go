package dish

// Filter selects and orders a catalog listing. The zero value returns every
// dish sorted by creation time, newest first.
type Filter struct {
	Published *bool  // exact match on isPublished when set
	Search    string // case-insensitive substring match on dishName
	SortBy    string // one of the sortable field names; defaults to createdAt
	Order     string // "asc" or "desc"; defaults to desc
}

var sortableFields = map[string]bool{
	"dishId":      true,
	"dishName":    true,
	"isPublished": true,
	"createdAt":   true,
	"updatedAt":   true,
}

// Sort resolves the filter's sort request to a known field and direction.
// Unknown sort keys fall back to the default rather than erroring, matching
// the lenient query-parameter handling of the API.
func (f Filter) Sort() (field string, ascending bool) {
	field = "createdAt"
	if sortableFields[f.SortBy] {
		field = f.SortBy
	}
	return field, f.Order == "asc"
}
