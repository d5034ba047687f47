// Package workflow holds the design-thinking project aggregate: the fixed stage
// registry, the per-stage state machine with its unlock cascade, and the
// weighted scoring engine. It has no I/O; services load, mutate and persist
// Project values around it.
package workflow

import (
	"strings"

	appErr "github.com/designwheel/engine/pkg/errors"
)

// StageType identifies one of the six fixed phases.
type StageType string

const (
	Empathize StageType = "EMPATHIZE"
	Define    StageType = "DEFINE"
	Ideate    StageType = "IDEATE"
	Prototype StageType = "PROTOTYPE"
	Test      StageType = "TEST"
	Implement StageType = "IMPLEMENT"
)

// StageInfo is the static metadata of a stage.
type StageInfo struct {
	Type          StageType `json:"type"`
	Index         int       `json:"index"`
	Label         string    `json:"label"`
	Description   string    `json:"description"`
	DefaultWeight float64   `json:"default_weight"`
}

// registry is ordered; the order is the progression and never changes at runtime.
var registry = []StageInfo{
	{Type: Empathize, Label: "Empathize", Description: "Research your users' needs through interviews and observation.", DefaultWeight: 15},
	{Type: Define, Label: "Define", Description: "State the users' needs and problems as a point of view.", DefaultWeight: 15},
	{Type: Ideate, Label: "Ideate", Description: "Challenge assumptions and generate a wide range of ideas.", DefaultWeight: 20},
	{Type: Prototype, Label: "Prototype", Description: "Build cheap, scaled-down versions of the best ideas.", DefaultWeight: 25},
	{Type: Test, Label: "Test", Description: "Put prototypes in front of users and collect feedback.", DefaultWeight: 15},
	{Type: Implement, Label: "Implement", Description: "Plan and deliver the refined solution.", DefaultWeight: 10},
}

func init() {
	for i := range registry {
		registry[i].Index = i
	}
}

// Stages returns the stage identifiers in progression order.
func Stages() []StageType {
	out := make([]StageType, len(registry))
	for i, info := range registry {
		out[i] = info.Type
	}
	return out
}

// Registry returns a copy of the stage metadata in progression order.
func Registry() []StageInfo {
	out := make([]StageInfo, len(registry))
	copy(out, registry)
	return out
}

// Info returns the metadata of s.
func Info(s StageType) (StageInfo, bool) {
	if i := s.Index(); i >= 0 {
		return registry[i], true
	}
	return StageInfo{}, false
}

// ParseStage accepts a stage identifier in any letter case.
func ParseStage(raw string) (StageType, error) {
	s := StageType(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", appErr.Newf(appErr.CodeNotFound, "unknown stage %q", raw)
	}
	return s, nil
}

// Index returns the position of s in the progression, or -1.
func (s StageType) Index() int {
	for i, info := range registry {
		if info.Type == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a registered stage.
func (s StageType) Valid() bool { return s.Index() >= 0 }

// Next returns the stage following s. ok is false for the last stage.
func (s StageType) Next() (next StageType, ok bool) {
	i := s.Index()
	if i < 0 || i == len(registry)-1 {
		return "", false
	}
	return registry[i+1].Type, true
}
