// Package assign holds the read-only signer roster and the preparer's current
// assignee selection.
package assign

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
)

// Roster is the list of people who can be assigned fields
type Roster struct {
	assignees []forms.Assignee
	byEmail   map[string]int
}

type rosterFile struct {
	Assignees []forms.Assignee `yaml:"assignees"`
}

// NewRoster validates and indexes a list of assignees. Emails must be
// non-empty and unique.
func NewRoster(assignees []forms.Assignee) (*Roster, error) {
	r := &Roster{byEmail: make(map[string]int, len(assignees))}
	for _, a := range assignees {
		a.Email = strings.TrimSpace(a.Email)
		a.Name = strings.TrimSpace(a.Name)
		if a.Email == "" {
			return nil, fmt.Errorf("assignee %q has no email", a.Name)
		}
		if _, dup := r.byEmail[a.Email]; dup {
			return nil, fmt.Errorf("duplicate assignee %s", a.Email)
		}
		if a.Name == "" {
			a.Name = a.Email
		}
		r.byEmail[a.Email] = len(r.assignees)
		r.assignees = append(r.assignees, a)
	}
	return r, nil
}

// ParseRoster reads a YAML roster document
func ParseRoster(data []byte) (*Roster, error) {
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	return NewRoster(f.Assignees)
}

// LoadRoster reads a YAML roster from disk. An empty path yields an empty
// roster.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return NewRoster(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster %s: %w", path, err)
	}
	return ParseRoster(data)
}

// List returns the assignees in roster order
func (r *Roster) List() []forms.Assignee {
	return append([]forms.Assignee(nil), r.assignees...)
}

// Lookup finds an assignee by email
func (r *Roster) Lookup(email string) (forms.Assignee, bool) {
	i, ok := r.byEmail[strings.TrimSpace(email)]
	if !ok {
		return forms.Assignee{}, false
	}
	return r.assignees[i], true
}

// Default returns the first assignee's email, or "" for an empty roster
func (r *Roster) Default() string {
	if len(r.assignees) == 0 {
		return ""
	}
	return r.assignees[0].Email
}

// Selection is the assignee new placeholders are tagged with
type Selection struct {
	mu      sync.RWMutex
	roster  *Roster
	current string
}

// NewSelection starts with the roster default selected
func NewSelection(roster *Roster) *Selection {
	return &Selection{roster: roster, current: roster.Default()}
}

// Current returns the selected assignee's email
func (s *Selection) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Select picks an assignee from the roster
func (s *Selection) Select(email string) (forms.Assignee, error) {
	a, ok := s.roster.Lookup(email)
	if !ok {
		return forms.Assignee{}, fmt.Errorf("assignee %s is not on the roster", email)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = a.Email
	return a, nil
}

// Reset drops any explicit choice and returns to the roster default
func (s *Selection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.roster.Default()
}

// Roster returns the roster the selection draws from
func (s *Selection) Roster() *Roster {
	return s.roster
}
