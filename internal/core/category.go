package core

import "strings"

// DefaultCategory is assigned when no category is given and the
// categorization service cannot provide one.
const DefaultCategory = "Other"

// Icon is a symbolic glyph tag from a fixed set.
type Icon string

const (
	IconCart     Icon = "cart"
	IconHome     Icon = "home"
	IconCar      Icon = "car"
	IconHeart    Icon = "heart"
	IconUtensils Icon = "utensils"
	IconBolt     Icon = "bolt"
	IconShirt    Icon = "shirt"
	IconGift     Icon = "gift"
	IconBook     Icon = "book"
	IconPaw      Icon = "paw"
	IconBaby     Icon = "baby"
	IconTag      Icon = "tag"
	// IconUnknown is the glyph for categories with no definition.
	IconUnknown Icon = "question"
)

// Icons lists the selectable icons in picker order.
var Icons = []Icon{IconCart, IconHome, IconCar, IconHeart, IconUtensils, IconBolt, IconShirt, IconGift, IconBook, IconPaw, IconBaby, IconTag}

// Color is a symbolic style tag from a fixed palette.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
	ColorPurple Color = "purple"
	ColorPink   Color = "pink"
	ColorTeal   Color = "teal"
	ColorYellow Color = "yellow"
	ColorGray   Color = "gray"
)

var Palette = []Color{ColorBlue, ColorGreen, ColorRed, ColorOrange, ColorPurple, ColorPink, ColorTeal, ColorYellow, ColorGray}

func (i Icon) Valid() bool {
	for _, v := range Icons {
		if v == i {
			return true
		}
	}
	return false
}

func (c Color) Valid() bool {
	for _, v := range Palette {
		if v == c {
			return true
		}
	}
	return false
}

// CategoryDefinition is cosmetic metadata for a category name. Expenses
// reference categories by free text, not by ID.
type CategoryDefinition struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  Icon   `json:"icon"`
	Color Color  `json:"color"`
}

// Validate accepts an empty icon or color, which renders with the fallback
// look. Anything else must come from Icons and Palette.
func (c CategoryDefinition) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Icon != "" && !c.Icon.Valid() {
		return ErrInvalidIcon
	}
	if c.Color != "" && !c.Color.Valid() {
		return ErrInvalidColor
	}
	return nil
}

// CategoryMatch is the result of looking a category name up among the
// definitions. Either a definition was found, or the fallback look applies.
type CategoryMatch struct {
	name  string
	def   CategoryDefinition
	found bool
}

// LookupCategory finds the definition for name, case-insensitively.
func LookupCategory(defs []CategoryDefinition, name string) CategoryMatch {
	for _, d := range defs {
		if SameName(d.Name, name) {
			return CategoryMatch{name: name, def: d, found: true}
		}
	}
	return CategoryMatch{name: name}
}

// Definition returns the matched definition and whether one exists.
func (m CategoryMatch) Definition() (CategoryDefinition, bool) {
	return m.def, m.found
}

func (m CategoryMatch) Icon() Icon {
	if m.found && m.def.Icon.Valid() {
		return m.def.Icon
	}
	return IconUnknown
}

func (m CategoryMatch) Color() Color {
	if m.found && m.def.Color.Valid() {
		return m.def.Color
	}
	return ColorGray
}

// Label is the display name; an empty category reads as DefaultCategory.
func (m CategoryMatch) Label() string {
	if m.found {
		return m.def.Name
	}
	if strings.TrimSpace(m.name) == "" {
		return DefaultCategory
	}
	return m.name
}
