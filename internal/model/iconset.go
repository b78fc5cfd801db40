package model

import "time"

// IconSetID uniquely identifies an icon set
type IconSetID string

// Icon variants
const (
	IconVariantNormal    = "normal"
	IconVariantDifferent = "different"
)

// Icon is one cell of the spot-the-difference grid
type Icon struct {
	ID      string `json:"id"`
	Variant string `json:"variant"`
}

// IconSet is a round of the game: a grid of identical icons with one
// different variant at CorrectIcon
type IconSet struct {
	ID          IconSetID
	Name        string
	Description string
	Icons       []Icon
	CorrectIcon int
	Difficulty  int
	IsActive    bool
	CreatedAt   time.Time
}

// BaseIconID returns the icon ID shared by the set, or "" if the set is empty
func (s *IconSet) BaseIconID() string {
	if len(s.Icons) == 0 {
		return ""
	}
	return s.Icons[0].ID
}

// NewIconGrid builds size icons with iconID, the one at correct being different
func NewIconGrid(iconID string, size, correct int) []Icon {
	icons := make([]Icon, size)
	for i := range icons {
		variant := IconVariantNormal
		if i == correct {
			variant = IconVariantDifferent
		}
		icons[i] = Icon{ID: iconID, Variant: variant}
	}
	return icons
}
