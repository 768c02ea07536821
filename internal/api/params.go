package api

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPageSize      = 20
	DefaultSortBy        = "createdAt"
	DefaultSortDirection = "desc"
)

// ListParams selects one page of the task list. Zero values mean defaults.
type ListParams struct {
	Page          int
	Size          int
	SortBy        string
	SortDirection string
	Search        string
	Completed     *bool
	CategoryID    *int64
	TagIDs        []int64
}

// Normalize fills defaults and puts TagIDs in ascending order without duplicates.
func (p ListParams) Normalize() ListParams {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.SortBy == "" {
		p.SortBy = DefaultSortBy
	}
	p.SortDirection = strings.ToLower(p.SortDirection)
	if p.SortDirection != "asc" {
		p.SortDirection = DefaultSortDirection
	}
	p.Search = strings.TrimSpace(p.Search)
	if len(p.TagIDs) > 0 {
		ids := append([]int64(nil), p.TagIDs...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out := ids[:1]
		for _, id := range ids[1:] {
			if id != out[len(out)-1] {
				out = append(out, id)
			}
		}
		p.TagIDs = out
	}
	return p
}

// Values encodes the normalized params as query parameters.
func (p ListParams) Values() url.Values {
	p = p.Normalize()
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("size", strconv.Itoa(p.Size))
	v.Set("sortBy", p.SortBy)
	v.Set("sortDirection", p.SortDirection)
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Completed != nil {
		v.Set("completed", strconv.FormatBool(*p.Completed))
	}
	if p.CategoryID != nil {
		v.Set("categoryId", strconv.FormatInt(*p.CategoryID, 10))
	}
	for _, id := range p.TagIDs {
		v.Add("tagIds", strconv.FormatInt(id, 10))
	}
	return v
}

// Canonical is a stable string form: equal params give equal strings.
func (p ListParams) Canonical() string {
	// url.Values.Encode sorts by key; tag ids are already sorted.
	return p.Values().Encode()
}
