package job

import "fmt"

// Category selects one of the seven component bags of a Job. Its string
// form is the template directory holding that category's bits.
type Category int

const (
	Actions Category = iota
	Properties
	SCMs
	Triggers
	Builders
	Publishers
	Wrappers

	categoryCount
)

// Categories lists every category in rendering order.
var Categories = []Category{Actions, Properties, SCMs, Triggers, Builders, Publishers, Wrappers}

var categoryNames = [categoryCount]string{
	Actions:    "actions",
	Properties: "properties",
	SCMs:       "scms",
	Triggers:   "triggers",
	Builders:   "builders",
	Publishers: "publishers",
	Wrappers:   "wrappers",
}

func (c Category) String() string {
	if c < 0 || c >= categoryCount {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	return c >= 0 && c < categoryCount
}

// ParseCategory maps a template directory name back to its Category.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown component category '%s'", s)
}
