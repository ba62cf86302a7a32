package domain

import (
	"strings"
	"time"
)

// Advertisement is a classified listing published by a user.
// Author, ID and CreatedAt are assigned once at creation and never change.
type Advertisement struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Contacts    string    `json:"contacts"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
}

// AdvertisementPatch carries the fields eligible for a partial update.
// It deliberately has no author field.
type AdvertisementPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Contacts    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p AdvertisementPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil && p.Contacts == nil
}

// Validate checks the patch values that are present.
func (p AdvertisementPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	if p.Price != nil && !(*p.Price > 0) {
		return ErrInvalidPrice
	}
	return nil
}

// Apply copies the present patch fields onto ad.
func (p AdvertisementPatch) Apply(ad *Advertisement) {
	if p.Title != nil {
		ad.Title = *p.Title
	}
	if p.Description != nil {
		ad.Description = *p.Description
	}
	if p.Price != nil {
		ad.Price = *p.Price
	}
	if p.Contacts != nil {
		ad.Contacts = *p.Contacts
	}
}

// AdvertisementFilter selects advertisements for a search.
// All present criteria must match.
type AdvertisementFilter struct {
	Title    *string  // case-insensitive substring of the title
	Author   *string  // exact author username
	PriceMin *float64 // inclusive
	PriceMax *float64 // inclusive
}

// Matches reports whether ad satisfies every criterion in f.
func (f AdvertisementFilter) Matches(ad *Advertisement) bool {
	if f.Title != nil && !strings.Contains(strings.ToLower(ad.Title), strings.ToLower(*f.Title)) {
		return false
	}
	if f.Author != nil && ad.Author != *f.Author {
		return false
	}
	if f.PriceMin != nil && ad.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && ad.Price > *f.PriceMax {
		return false
	}
	return true
}
