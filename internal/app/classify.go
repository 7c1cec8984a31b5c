package app

import "typologylab/internal/domain"

// Classification banding for the fixed quiz. These are the only thresholds that
// decide an archetype.
const (
	HighTraitThreshold = 3
	LowTraitThreshold  = -3
)

// Aggregate sums answer weights. An empty sequence totals zero.
func Aggregate(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	return total
}

// Classify maps a fixed quiz total and demographic to exactly one archetype.
func Classify(total int, d domain.Demographic) (domain.Archetype, error) {
	if d != domain.DemographicMale && d != domain.DemographicFemale {
		return "", domain.ErrUnknownDemographic
	}
	switch {
	case total >= HighTraitThreshold:
		if d == domain.DemographicMale {
			return domain.ArchetypeEgenMale, nil
		}
		return domain.ArchetypeEgenFemale, nil
	case total <= LowTraitThreshold:
		if d == domain.DemographicMale {
			return domain.ArchetypeTetoMale, nil
		}
		return domain.ArchetypeTetoFemale, nil
	default:
		return domain.ArchetypeMixed, nil
	}
}

// Band is a step on the descriptive commentary scale. It never feeds Classify.
type Band int

const (
	BandVeryHigh Band = iota
	BandHigh
	BandBalanced
	BandLow
	BandVeryLow
)

// Floors of the descriptive scale, highest first. A total belongs to the first
// band whose floor it reaches; anything below the last floor is BandVeryLow.
var descriptiveBandFloors = [...]int{10, 3, -2, -9}

// DescriptiveBand buckets a total on the five-step commentary scale.
func DescriptiveBand(total int) Band {
	for i, floor := range descriptiveBandFloors {
		if total >= floor {
			return Band(i)
		}
	}
	return BandVeryLow
}

var bandCommentary = [...]string{
	BandVeryHigh: "Your egen tendency is very strong",
	BandHigh:     "Your egen tendency is strong",
	BandBalanced: "You have a balanced tendency",
	BandLow:      "Your teto tendency is strong",
	BandVeryLow:  "Your teto tendency is very strong",
}

// ScoreCommentary is presentation prose for a total.
func ScoreCommentary(total int) string {
	return bandCommentary[DescriptiveBand(total)]
}

// MatchResult returns the first score-conditioned record whose range contains total.
// ok is false when the authored ranges leave a gap at total.
func MatchResult(total int, results []domain.ResultRecord) (domain.ResultRecord, bool) {
	for _, r := range results {
		if r.ConditionType != domain.ConditionScore {
			continue
		}
		if r.ConditionValue.Contains(total) {
			return r, true
		}
	}
	return domain.ResultRecord{}, false
}
