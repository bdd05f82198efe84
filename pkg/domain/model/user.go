package model

import (
	"slices"
	"strings"
)

// RawUser is a directory record as a connector hands it over, before
// group-name remapping. Group names are the directory's own.
type RawUser struct {
	Email     string
	FirstName string
	LastName  string
	Groups    []string
	Company   string
	Title     string
	Phone     string
}

// User is the canonical normalized directory user. Email is the sole
// cross-system join key and is compared case-insensitively. Groups are
// kept sorted by the normalizer so structural comparison is a plain
// slice compare.
type User struct {
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Groups    []string `json:"groups"`
	Company   string   `json:"company,omitempty"`
	Title     string   `json:"title,omitempty"`
	Phone     string   `json:"phone,omitempty"`
}

// NormalizeEmail folds an email address for cross-system comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailKey returns the case-folded join key for this user
func (u *User) EmailKey() string {
	return NormalizeEmail(u.Email)
}

// Equal reports whether two normalized records are structurally
// identical: email key, names, group set and extended attributes.
func (u *User) Equal(other *User) bool {
	if other == nil {
		return false
	}
	return u.EmailKey() == other.EmailKey() &&
		u.FirstName == other.FirstName &&
		u.LastName == other.LastName &&
		u.Company == other.Company &&
		u.Title == other.Title &&
		u.Phone == other.Phone &&
		slices.Equal(u.Groups, other.Groups)
}

// SortedGroups returns the user's group names in sorted order. The
// first entry is authoritative for placement: the target system binds
// a user to exactly one group, so the first group in sorted order wins.
func (u *User) SortedGroups() []string {
	groups := slices.Clone(u.Groups)
	slices.Sort(groups)
	return groups
}

// HasGroup reports whether the user carries the given group name
func (u *User) HasGroup(name string) bool {
	return slices.Contains(u.Groups, name)
}
