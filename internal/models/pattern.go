package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level is a binarized factor value
type Level string

const (
	LevelHigh Level = "high"
	LevelLow  Level = "low"
)

// DiscoveryMethod identifies the technique that produced a Pattern
type DiscoveryMethod string

const (
	DiscoveryClustering  DiscoveryMethod = "distance_clustering"
	DiscoveryAssociation DiscoveryMethod = "pairwise_association"
)

// Pattern is a factor signature whose historical win rate deviates from a coin flip.
// Patterns are never mutated; re-discovery replaces the whole PatternSet.
type Pattern struct {
	ID              uuid.UUID        `json:"id"`
	Signature       map[string]Level `json:"signature"`
	WinRate         float64          `json:"win_rate"`
	SampleSize      int              `json:"sample_size"`
	Confidence      float64          `json:"confidence"`
	DiscoveryMethod DiscoveryMethod  `json:"discovery_method"`
	Version         int              `json:"version"`
	DiscoveredAt    time.Time        `json:"discovered_at"`
}

// WinRateDeviation returns the signed distance of the win rate from 0.5
func (p Pattern) WinRateDeviation() float64 {
	return p.WinRate - 0.5
}

// Matches reports whether every signature entry holds for the factor set
// when binarized at threshold. A missing factor never matches.
func (p Pattern) Matches(factors FactorSet, threshold float64) bool {
	if len(p.Signature) == 0 {
		return false
	}
	for name, level := range p.Signature {
		v, ok := factors[name]
		if !ok {
			return false
		}
		if Binarize(v, threshold) != level {
			return false
		}
	}
	return true
}

// Key returns a stable textual form of the signature, e.g. "fatigue_high+injuries_high"
func (p Pattern) Key() string {
	parts := make([]string, 0, len(p.Signature))
	for name, level := range p.Signature {
		parts = append(parts, name+"_"+string(level))
	}
	sort.Strings(parts)
	return strings.Join(parts, "+")
}

// Binarize maps a normalized value onto high/low
func Binarize(v, threshold float64) Level {
	if v > threshold {
		return LevelHigh
	}
	return LevelLow
}

// PatternSet is one discovery run's output; it is replaced wholesale
type PatternSet struct {
	Version      int       `json:"version"`
	Corpus       string    `json:"corpus"`
	Patterns     []Pattern `json:"patterns"`
	DiscoveredAt time.Time `json:"discovered_at"`
}
