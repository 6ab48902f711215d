package record

import "strings"

// MomentType classifies a moment. Unknown stored values are coerced to
// MomentStar, never rejected.
type MomentType string

const (
	MomentStar      MomentType = "star"
	MomentCloud     MomentType = "cloud"
	MomentMilestone MomentType = "milestone"
)

// DefaultMomentType is used for new forms and for unrecognised stored values.
const DefaultMomentType = MomentStar

// MomentTypes lists the known types in display order.
func MomentTypes() []MomentType {
	return []MomentType{MomentStar, MomentCloud, MomentMilestone}
}

// ParseMomentType maps s to a known type, falling back to DefaultMomentType.
func ParseMomentType(s string) MomentType {
	switch MomentType(strings.ToLower(strings.TrimSpace(s))) {
	case MomentStar:
		return MomentStar
	case MomentCloud:
		return MomentCloud
	case MomentMilestone:
		return MomentMilestone
	default:
		return DefaultMomentType
	}
}

// Known reports whether t is one of the enumerated types.
func (t MomentType) Known() bool {
	switch t {
	case MomentStar, MomentCloud, MomentMilestone:
		return true
	}
	return false
}

// Next cycles through the known types.
func (t MomentType) Next() MomentType {
	types := MomentTypes()
	for i, candidate := range types {
		if candidate == t {
			return types[(i+1)%len(types)]
		}
	}
	return DefaultMomentType
}

// Glyph describes how a moment type is drawn.
type Glyph struct {
	Symbol  string
	Meaning string
	// Color is an ANSI 256 colour code.
	Color string
}

func (g Glyph) String() string {
	return g.Symbol
}

var glyphs = map[MomentType]Glyph{
	MomentStar:      {Symbol: "★", Meaning: "star", Color: "220"},
	MomentCloud:     {Symbol: "☁", Meaning: "cloud", Color: "111"},
	MomentMilestone: {Symbol: "⚑", Meaning: "milestone", Color: "114"},
}

// Glyph returns the icon and colour for t; unknown types draw as a star.
func (t MomentType) Glyph() Glyph {
	if g, ok := glyphs[t]; ok {
		return g
	}
	return glyphs[DefaultMomentType]
}

func (t MomentType) String() string {
	return string(t)
}
