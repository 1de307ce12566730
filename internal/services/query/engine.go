package query

import (
	"sort"
	"strings"

	"github.com/ternarybob/reperio/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction selects sort order
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Sortable product fields
const (
	FieldTitle      = "title"
	FieldPrice      = "price"
	FieldSite       = "site"
	FieldCategory   = "category"
	FieldMaterial   = "material"
	FieldSize       = "size"
	FieldConfidence = "confidence"
	FieldRating     = "rating"
	FieldReviews    = "reviews_count"
)

// collator gives locale-aware string ordering for sort comparisons
var collator = collate.New(language.English, collate.Loose)

// Page is one ordered slice of the queried result set
type Page struct {
	Items      []models.Product `json:"items"`
	TotalCount int              `json:"total_count"`
	PageIndex  int              `json:"page_index"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// Query evaluates filter, sort and pagination over a result snapshot. It is
// a pure function of its inputs and is re-evaluated on every state change;
// result sets are small enough that no caching is warranted.
func Query(results []models.Product, state State) Page {
	filtered := Filter(results, state.Filters)
	sorted := Sort(filtered, state.SortField, state.SortDir)
	items := Paginate(sorted, state.PageIndex, state.PageSize)

	totalPages := 0
	if state.PageSize > 0 {
		totalPages = (len(sorted) + state.PageSize - 1) / state.PageSize
	}

	return Page{
		Items:      items,
		TotalCount: len(sorted),
		PageIndex:  state.PageIndex,
		PageSize:   state.PageSize,
		TotalPages: totalPages,
	}
}

// Filter returns the products satisfying every set filter key. Predicates
// AND across keys; the site filter ORs across its values.
func Filter(results []models.Product, filters *models.SearchFilters) []models.Product {
	if filters.IsZero() {
		out := make([]models.Product, len(results))
		copy(out, results)
		return out
	}

	out := make([]models.Product, 0, len(results))
	for _, p := range results {
		if matches(&p, filters) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p *models.Product, f *models.SearchFilters) bool {
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	// Category matches against either the category field or the title
	if f.Category != "" {
		needle := strings.ToLower(f.Category)
		if !strings.Contains(strings.ToLower(p.Category), needle) &&
			!strings.Contains(strings.ToLower(p.Title), needle) {
			return false
		}
	}
	if f.Material != "" && !strings.EqualFold(p.Material, f.Material) {
		return false
	}
	if f.Size != "" && !strings.EqualFold(p.Size, f.Size) {
		return false
	}
	// A product with no rating cannot satisfy a rating floor
	if f.MinRating != nil {
		if p.Rating == nil || *p.Rating < *f.MinRating {
			return false
		}
	}
	if len(f.Site) > 0 {
		site := strings.ToLower(p.Site)
		matched := false
		for _, want := range f.Site {
			if strings.Contains(site, strings.ToLower(want)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Sort returns a stably sorted copy by one field and direction. A product
// with no value for the field sorts toward the end whichever direction is
// chosen: the null tie-break is applied before the direction is, so
// descending negates only the defined-value comparison. An unknown field
// leaves the input order intact.
func Sort(results []models.Product, field string, dir Direction) []models.Product {
	out := make([]models.Product, len(results))
	copy(out, results)

	if field == "" {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		return compare(&out[i], &out[j], field, dir) < 0
	})
	return out
}

func compare(a, b *models.Product, field string, dir Direction) int {
	av, aok := fieldValue(a, field)
	bv, bok := fieldValue(b, field)

	// Null tie-break: an absent value sorts after a defined one regardless
	// of which side holds it and regardless of direction
	if !aok && !bok {
		return 0
	}
	if !aok {
		return 1
	}
	if !bok {
		return -1
	}

	r := compareValues(av, bv)
	if dir == Descending {
		r = -r
	}
	return r
}

// fieldValue extracts the sort value for a field. The second return is
// false when the product has no value for that field.
func fieldValue(p *models.Product, field string) (interface{}, bool) {
	switch field {
	case FieldTitle:
		return p.Title, p.Title != ""
	case FieldPrice:
		return p.Price, true
	case FieldSite:
		return p.Site, p.Site != ""
	case FieldCategory:
		return p.Category, p.Category != ""
	case FieldMaterial:
		return p.Material, p.Material != ""
	case FieldSize:
		return p.Size, p.Size != ""
	case FieldConfidence:
		return p.Confidence, true
	case FieldRating:
		if p.Rating == nil {
			return nil, false
		}
		return *p.Rating, true
	case FieldReviews:
		if p.ReviewsCount == nil {
			return nil, false
		}
		return float64(*p.ReviewsCount), true
	default:
		return nil, false
	}
}

// compareValues compares two defined values: strings collate locale-aware,
// numbers by difference, anything incomparable as equal so the stable sort
// keeps input order.
func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return collator.CompareString(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	}
	return 0
}

// Paginate slices one 1-based page out of the ordered items. An
// out-of-range page yields an empty page, not an error.
func Paginate(items []models.Product, pageIndex, pageSize int) []models.Product {
	if pageIndex < 1 || pageSize < 1 {
		return []models.Product{}
	}
	start := (pageIndex - 1) * pageSize
	if start >= len(items) {
		return []models.Product{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	out := make([]models.Product, end-start)
	copy(out, items[start:end])
	return out
}
