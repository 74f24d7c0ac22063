package games

import (
	"fmt"
	"strings"
)

// Category groups games by audience. The zero value means "no category" and
// is only meaningful in listing queries, where it spans every category.
type Category string

const (
	Casual Category = "casual"
	Ladies Category = "ladies"
	Boys   Category = "boys"
	Vors   Category = "vors"
	Mixed  Category = "mixed"
)

var categories = map[Category]struct{}{
	Casual: {},
	Ladies: {},
	Boys:   {},
	Vors:   {},
	Mixed:  {},
}

// ParseCategory parses a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := categories[c]; !ok {
		return "", fmt.Errorf("unknown game category %q", s)
	}
	return c, nil
}

func (c Category) String() string { return string(c) }

// Valid reports whether c is a known, non-empty category.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// IsZero reports whether c is the "no category" value.
func (c Category) IsZero() bool { return c == "" }

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown categories.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
