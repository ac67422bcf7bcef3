package domain

import "strings"

// SpaceType distinguishes bookable rooms from single tables.
type SpaceType string

const (
	SpaceTypeRoom  SpaceType = "ROOM"
	SpaceTypeTable SpaceType = "TABLE"
)

// Valid reports whether t is a known space type.
func (t SpaceType) Valid() bool {
	return t == SpaceTypeRoom || t == SpaceTypeTable
}

// ParseSpaceType accepts any casing.
func ParseSpaceType(raw string) (SpaceType, bool) {
	t := SpaceType(strings.ToUpper(strings.TrimSpace(raw)))
	return t, t.Valid()
}

// Space is a bookable room or table as the backend reports it.
type Space struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Capacity int       `json:"capacity"`
	Type     SpaceType `json:"type"`
	ImageURL string    `json:"imageUrl,omitempty"`
}

// SpaceInput is the JSON carried in the "space" field of a multipart create/update.
type SpaceInput struct {
	Name     string    `json:"name"`
	Capacity int       `json:"capacity"`
	Type     SpaceType `json:"type"`
}
