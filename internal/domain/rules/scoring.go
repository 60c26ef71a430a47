package rules

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Weights of the compatibility score. Shared interests dominate, distance
// comes second, recent activity breaks near-ties.
const (
	weightInterests = 0.55
	weightProximity = 0.30
	weightActivity  = 0.15

	activityHalfLife = 72 * time.Hour
)

var ErrScoreInput = errors.New("invalid score input")

type ScoreInput struct {
	ViewerInterests     []string
	CandidateInterests  []string
	DistanceKM          *float64
	MaxDistanceKM       int
	CandidateLastActive time.Time
	Now                 time.Time
}

// SharedInterests returns the case-insensitive intersection, preserving the
// viewer's ordering and spelling.
func SharedInterests(viewer, candidate []string) []string {
	if len(viewer) == 0 || len(candidate) == 0 {
		return nil
	}

	candidateSet := make(map[string]struct{}, len(candidate))
	for _, interest := range candidate {
		key := strings.ToLower(strings.TrimSpace(interest))
		if key == "" {
			continue
		}
		candidateSet[key] = struct{}{}
	}

	var shared []string
	seen := make(map[string]struct{}, len(viewer))
	for _, interest := range viewer {
		key := strings.ToLower(strings.TrimSpace(interest))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := candidateSet[key]; ok {
			shared = append(shared, strings.TrimSpace(interest))
		}
	}
	return shared
}

// CompatibilityScore computes a [0,1] score for showing candidate to viewer.
// Missing location or activity data falls back to a neutral 0.5 for that
// component rather than failing the candidate.
func CompatibilityScore(in ScoreInput) (float64, error) {
	if in.MaxDistanceKM <= 0 {
		return 0, ErrScoreInput
	}
	if in.DistanceKM != nil && *in.DistanceKM < 0 {
		return 0, ErrScoreInput
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	overlap := 0.0
	if len(in.ViewerInterests) > 0 {
		shared := SharedInterests(in.ViewerInterests, in.CandidateInterests)
		overlap = float64(len(shared)) / float64(len(in.ViewerInterests))
		if overlap > 1 {
			overlap = 1
		}
	}

	proximity := 0.5
	if in.DistanceKM != nil {
		ratio := *in.DistanceKM / float64(in.MaxDistanceKM)
		if ratio > 1 {
			ratio = 1
		}
		proximity = 1 - ratio
	}

	activity := 0.5
	if !in.CandidateLastActive.IsZero() {
		idle := in.Now.Sub(in.CandidateLastActive)
		if idle < 0 {
			idle = 0
		}
		activity = math.Exp2(-float64(idle) / float64(activityHalfLife))
	}

	return weightInterests*overlap + weightProximity*proximity + weightActivity*activity, nil
}

// MatchQuality derives the quality stored on a match from the compatibility
// score recorded when the candidate was queued plus the absolute overlap.
// Five or more shared interests saturate the overlap term.
func MatchQuality(compatibility float64, sharedInterests int) float64 {
	if compatibility < 0 {
		compatibility = 0
	}
	if compatibility > 1 {
		compatibility = 1
	}

	overlap := float64(sharedInterests) / 5.0
	if overlap > 1 {
		overlap = 1
	}

	return 0.7*compatibility + 0.3*overlap
}

// HaversineKM mirrors the distance computed in SQL by the candidate query so
// in-process scoring and storage filtering agree.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0

	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// CanonicalPair orders an unordered user pair so uniqueness checks see one key.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
