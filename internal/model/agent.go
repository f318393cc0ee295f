package model

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Tier identifies which catalog an agent record comes from.
type Tier string

const (
	TierHead    Tier = "head"
	TierDynamic Tier = "dynamic"
	TierMock    Tier = "mock"
)

// MaxNameLen bounds agent names; they appear in URL paths.
const MaxNameLen = 64

// AgentRecord is a named agent as seen by the registry.
//
// Personality, Skills and CreatedAt are only ever set on DYNAMIC records.
// HEAD and MOCK records live for the whole process and carry no creation time.
type AgentRecord struct {
	Name        string     `json:"name"`
	Tier        Tier       `json:"tier"`
	Role        string     `json:"role"`
	Stability   float64    `json:"stability"`
	DisplayName string     `json:"display_name,omitempty"`
	Emoji       string     `json:"emoji,omitempty"`
	Personality *string    `json:"personality,omitempty"`
	Skills      []string   `json:"skills,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate registry state
// through shared slices or pointers.
func (a AgentRecord) Clone() AgentRecord {
	out := a
	if a.Personality != nil {
		p := *a.Personality
		out.Personality = &p
	}
	if a.CreatedAt != nil {
		t := *a.CreatedAt
		out.CreatedAt = &t
	}
	out.Skills = slices.Clone(a.Skills)
	return out
}

// NormalizeName case-folds an agent name and strips surrounding whitespace.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateName checks that an already-normalized name is usable as an agent
// name: 1-64 characters of lowercase letters, digits, hyphens and underscores.
func ValidateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("name must be at most %d characters", MaxNameLen)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' && c != '_' {
			return fmt.Errorf("name contains invalid character at position %d: %q", i, c)
		}
	}
	return nil
}

// ValidateStability checks that a stability score is a finite value in [0, 1].
func ValidateStability(s float64) error {
	if math.IsNaN(s) || s < 0 || s > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %v", s)
	}
	return nil
}

// ParseSkills splits a comma-separated skill list, trimming blanks.
func ParseSkills(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var skills []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}
