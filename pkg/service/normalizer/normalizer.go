// Package normalizer maps connector-native user and group records into
// the canonical schema shared by every directory connector.
package normalizer

import (
	"slices"
	"strings"

	"github.com/secmon-lab/idsync/pkg/domain/model"
)

// Normalizer applies the configured group-name mapping and marker
// pass-through rules. It is a pure transform: no I/O, no state beyond
// its configuration.
type Normalizer struct {
	mapping map[string]string
	markers map[string]struct{}
}

// New creates a Normalizer. mapping may be nil or empty, in which case
// group names pass through untouched. markers are the reserved
// role-marker group names: they encode privilege, not placement, and
// are never remapped even when a mapping table is configured.
func New(mapping map[string]string, markers ...string) *Normalizer {
	markerSet := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		markerSet[m] = struct{}{}
	}
	return &Normalizer{
		mapping: mapping,
		markers: markerSet,
	}
}

// IsMarker reports whether the group name is a reserved role marker
func (n *Normalizer) IsMarker(name string) bool {
	_, ok := n.markers[name]
	return ok
}

// Groups produces the canonical placement group list from connector
// group names: markers are excluded, the mapping table is applied, and
// the result is sorted and de-duplicated.
func (n *Normalizer) Groups(raw []string) []model.Group {
	var names []string
	for _, name := range raw {
		if n.IsMarker(name) {
			continue
		}
		mapped, ok := n.mapName(name)
		if !ok {
			continue
		}
		names = append(names, mapped)
	}

	slices.Sort(names)
	names = slices.Compact(names)

	groups := make([]model.Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, model.Group{Name: name})
	}
	return groups
}

// Users produces canonical user records from connector raw records.
// Each user's group list goes through the same mapping as Groups,
// except markers pass through unmapped. Group lists come out sorted so
// structural comparison downstream is a plain slice compare.
func (n *Normalizer) Users(raw []model.RawUser) []model.User {
	users := make([]model.User, 0, len(raw))
	for _, r := range raw {
		var groups []string
		for _, name := range r.Groups {
			if n.IsMarker(name) {
				groups = append(groups, name)
				continue
			}
			mapped, ok := n.mapName(name)
			if !ok {
				continue
			}
			groups = append(groups, mapped)
		}
		slices.Sort(groups)
		groups = slices.Compact(groups)

		users = append(users, model.User{
			Email:     strings.TrimSpace(r.Email),
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Groups:    groups,
			Company:   r.Company,
			Title:     r.Title,
			Phone:     r.Phone,
		})
	}
	return users
}

// mapName applies the mapping table. With no table every name passes
// through; with a table only mapped names survive, matching the
// original remapping semantics.
func (n *Normalizer) mapName(name string) (string, bool) {
	if len(n.mapping) == 0 {
		return name, true
	}
	mapped, ok := n.mapping[name]
	return mapped, ok
}
