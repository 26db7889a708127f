package core

// Built-in collections used on first run, when the tenant has none yet.
// IDs are fixed so repeated hydrations agree with each other.

func DefaultStores() []Store {
	names := []string{"Esselunga", "Coop", "Conad", "Lidl", "Carrefour", "Eurospin", "Amazon", "Farmacia"}
	out := make([]Store, len(names))
	for i, n := range names {
		out[i] = Store{ID: "default-store-" + slug(n), Name: n}
	}
	return out
}

func DefaultCategories() []CategoryDefinition {
	defs := []struct {
		name  string
		icon  Icon
		color Color
	}{
		{"Groceries", IconCart, ColorGreen},
		{"Home", IconHome, ColorBlue},
		{"Bills", IconBolt, ColorYellow},
		{"Transport", IconCar, ColorOrange},
		{"Health", IconHeart, ColorRed},
		{"Dining", IconUtensils, ColorPink},
		{"Clothing", IconShirt, ColorPurple},
		{"Kids", IconBaby, ColorTeal},
		{"Pets", IconPaw, ColorOrange},
		{"Gifts", IconGift, ColorPink},
		{DefaultCategory, IconTag, ColorGray},
	}
	out := make([]CategoryDefinition, len(defs))
	for i, d := range defs {
		out[i] = CategoryDefinition{ID: "default-category-" + slug(d.name), Name: d.name, Icon: d.icon, Color: d.color}
	}
	return out
}

func slug(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b = append(b, c+'a'-'A')
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b = append(b, c)
		default:
			b = append(b, '-')
		}
	}
	return string(b)
}
