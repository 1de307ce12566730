package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StringOrList accepts either a single JSON string or an array of strings.
// The site filter is delivered both ways by callers.
type StringOrList []string

// UnmarshalJSON implements json.Unmarshaler
func (s *StringOrList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("site filter must be a string or array of strings")
	}
	*s = StringOrList(list)
	return nil
}

// SearchFilters narrows a search request and, with the same shape, a result
// query. Absent fields impose no constraint.
type SearchFilters struct {
	MinPrice  *float64     `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice  *float64     `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	Category  string       `json:"category,omitempty"`
	Material  string       `json:"material,omitempty"`
	Size      string       `json:"size,omitempty"`
	MinRating *float64     `json:"min_rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Site      StringOrList `json:"site,omitempty"`
}

// IsZero reports whether no filter key is set
func (f *SearchFilters) IsZero() bool {
	if f == nil {
		return true
	}
	return f.MinPrice == nil && f.MaxPrice == nil && f.Category == "" &&
		f.Material == "" && f.Size == "" && f.MinRating == nil && len(f.Site) == 0
}

// SearchRequest is the immutable value submitted to the backend. The prompt
// must be non-empty after trimming; an empty site list is replaced by the
// caller-configured default before submission.
type SearchRequest struct {
	Prompt  string         `json:"prompt" validate:"required"`
	Sites   []string       `json:"sites" validate:"required,min=1,dive,required"`
	Filters *SearchFilters `json:"filters,omitempty"`
}

// NewSearchRequest trims the prompt and fills in default sites when none
// are given. It does not validate; the submission client does that before
// any network I/O.
func NewSearchRequest(prompt string, sites []string, filters *SearchFilters, defaultSites []string) SearchRequest {
	cleaned := make([]string, 0, len(sites))
	for _, s := range sites {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, defaultSites...)
	}
	return SearchRequest{
		Prompt:  strings.TrimSpace(prompt),
		Sites:   cleaned,
		Filters: filters,
	}
}
