// Package models defines data structures for the recipebox catalog.
package models

import "time"

// Recipe is one entry in the catalog. Field names match the persisted JSON
// layout, which has no schema version: readers must accept records without
// images or cookedCount.
type Recipe struct {
	Title         string   `json:"title" yaml:"title"`
	Ingredients   []string `json:"ingredients" yaml:"ingredients"`
	Steps         string   `json:"steps" yaml:"steps"`
	Tags          []string `json:"tags" yaml:"tags"`
	Rating        float64  `json:"rating" yaml:"rating"`
	Images        []string `json:"images" yaml:"-"`
	Created       int64    `json:"created" yaml:"created"`
	FormattedDate string   `json:"formattedDate" yaml:"formattedDate"`
	CookedCount   int      `json:"cookedCount" yaml:"cookedCount"`
}

// ID returns the record's identity. The creation timestamp is assigned once
// and never changes, so it doubles as the key used to find a record again
// after the view has been filtered or sorted.
func (r Recipe) ID() int64 {
	return r.Created
}

// CreatedAt returns the creation timestamp as a time.Time.
func (r Recipe) CreatedAt() time.Time {
	return time.UnixMilli(r.Created)
}

// Clone returns a deep copy so callers cannot mutate the store's slices.
func (r Recipe) Clone() Recipe {
	c := r
	c.Ingredients = cloneStrings(r.Ingredients)
	c.Tags = cloneStrings(r.Tags)
	c.Images = cloneStrings(r.Images)
	return c
}

// Draft is the field set collected from a form before it is merged with the
// identity-preserving fields of an existing record.
type Draft struct {
	Title       string
	Ingredients []string
	Steps       string
	Tags        []string
	Rating      float64
	Images      []string

	// KeepImages leaves the existing record's images in place on update.
	// Set when an edit supplies no new images.
	KeepImages bool
}

// Apply overwrites every editable field of r with the draft's values.
// Created, FormattedDate and CookedCount are left untouched.
func (d Draft) Apply(r Recipe) Recipe {
	out := r.Clone()
	out.Title = d.Title
	out.Ingredients = nonNil(cloneStrings(d.Ingredients))
	out.Steps = d.Steps
	out.Tags = nonNil(cloneStrings(d.Tags))
	out.Rating = d.Rating
	if !d.KeepImages {
		out.Images = nonNil(cloneStrings(d.Images))
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ViewItem is one entry of a filtered, sorted view. Index is the record's
// position in the unfiltered collection and is what edit, delete and
// mark-cooked actions address.
type ViewItem struct {
	Recipe Recipe `json:"recipe"`
	Index  int    `json:"index"`
}
