package solvine

import (
	"slices"
	"time"

	"github.com/solvine-ai/solvine/internal/model"
)

// Tier identifies which catalog an agent comes from.
type Tier string

const (
	TierHead    Tier = "head"
	TierDynamic Tier = "dynamic"
	TierMock    Tier = "mock"
)

// Agent is the public representation of a registry agent.
// It is a curated view of the internal record for use in extension interfaces.
type Agent struct {
	Name        string
	Tier        Tier
	Role        string
	Stability   float64
	DisplayName string
	Emoji       string
	Personality string
	Skills      []string
	CreatedAt   time.Time // zero for HEAD and MOCK agents
}

func toPublicAgent(rec model.AgentRecord) Agent {
	a := Agent{
		Name:        rec.Name,
		Tier:        Tier(rec.Tier),
		Role:        rec.Role,
		Stability:   rec.Stability,
		DisplayName: rec.DisplayName,
		Emoji:       rec.Emoji,
		Skills:      slices.Clone(rec.Skills),
	}
	if rec.Personality != nil {
		a.Personality = *rec.Personality
	}
	if rec.CreatedAt != nil {
		a.CreatedAt = *rec.CreatedAt
	}
	return a
}
