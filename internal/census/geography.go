package census

import (
	"fmt"
	"sort"
	"strings"
)

// Geography describes one supported geography level: the API keyword used
// in the "for" clause, the key columns the API returns for it, and the
// intermediate levels that must be wildcarded in the "in" clause.
type Geography struct {
	Name      string
	Keys      []string
	Wildcards []string
}

// UnknownGeographyError reports a geography name with no key mapping.
type UnknownGeographyError struct {
	Name  string
	Known []string
}

func (e *UnknownGeographyError) Error() string {
	return fmt.Sprintf("unknown geography %q (supported: %s)", e.Name, strings.Join(e.Known, ", "))
}

var geographies = map[string]Geography{
	"state": {
		Name: "state",
		Keys: []string{"state"},
	},
	"county": {
		Name: "county",
		Keys: []string{"state", "county"},
	},
	"tract": {
		Name:      "tract",
		Keys:      []string{"state", "county", "tract"},
		Wildcards: []string{"county"},
	},
	"place": {
		Name: "place",
		Keys: []string{"state", "place"},
	},
	"block group": {
		Name:      "block group",
		Keys:      []string{"state", "county", "tract", "block group"},
		Wildcards: []string{"county", "tract"},
	},
}

// Lookup returns the geography definition for a name.
func Lookup(name string) (Geography, error) {
	g, ok := geographies[name]
	if !ok {
		return Geography{}, &UnknownGeographyError{Name: name, Known: Names()}
	}
	return g, nil
}

// Geokeys returns the ordered key columns for a geography name. These
// columns identify a row in every table the pipeline produces.
func Geokeys(name string) ([]string, error) {
	g, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), g.Keys...), nil
}

// Names returns the supported geography names, sorted.
func Names() []string {
	names := make([]string, 0, len(geographies))
	for name := range geographies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
