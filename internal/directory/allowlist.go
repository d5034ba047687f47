// Package directory holds the eligibility rules for student identifiers.
package directory

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// StudentIDLength is the exact length an identifier must have to be admitted.
const StudentIDLength = 10

var separators = regexp.MustCompile(`[\n,]+`)

// ParseStudentIDs splits free-form input on newlines and commas, trims each
// token and keeps only tokens of exactly StudentIDLength characters. Duplicates
// are dropped; first occurrence order is kept.
func ParseStudentIDs(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range separators.Split(raw, -1) {
		id := strings.TrimSpace(tok)
		if !ValidStudentID(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ValidStudentID reports whether id has the admitted shape.
func ValidStudentID(id string) bool {
	return utf8.RuneCountInString(id) == StudentIDLength && strings.TrimSpace(id) == id
}

// AllowList is the set of identifiers permitted to register.
type AllowList struct {
	ids map[string]struct{}
}

// NewAllowList builds a list from ids, ignoring malformed entries.
func NewAllowList(ids ...string) *AllowList {
	l := &AllowList{ids: make(map[string]struct{}, len(ids))}
	l.Merge(ids)
	return l
}

// Merge unions ids into the list and returns how many were new.
func (l *AllowList) Merge(ids []string) int {
	added := 0
	for _, id := range ids {
		if !ValidStudentID(id) {
			continue
		}
		if _, ok := l.ids[id]; ok {
			continue
		}
		l.ids[id] = struct{}{}
		added++
	}
	return added
}

// Contains reports whether id may register.
func (l *AllowList) Contains(id string) bool {
	_, ok := l.ids[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of admitted identifiers.
func (l *AllowList) Len() int { return len(l.ids) }

// IDs returns the identifiers sorted ascending.
func (l *AllowList) IDs() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Format renders the list one identifier per line, the shape ParseStudentIDs reads.
func (l *AllowList) Format() string {
	return strings.Join(l.IDs(), "\n")
}
