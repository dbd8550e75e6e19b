package match

import (
	"math"
	"strings"

	"github.com/evcraddock/bukkaku/internal/property"
)

// Listing is the part of a platform search result the scorer compares.
type Listing struct {
	Address    string
	Rent       string
	Layout     string
	StatusText string
}

// Scorer computes confidence scores under a fixed policy. It holds no
// mutable state and is safe for concurrent use.
type Scorer struct {
	policy Policy
}

// NewScorer creates a scorer for the given policy.
func NewScorer(policy Policy) *Scorer {
	return &Scorer{policy: policy}
}

// Policy returns the policy the scorer was built with.
func (s *Scorer) Policy() Policy {
	return s.policy
}

// Score returns the confidence in [0, 1] that l describes p.
func (s *Scorer) Score(l Listing, p *property.Property) float64 {
	pol := s.policy
	var total float64

	if sim := AddressSimilarity(l.Address, p.Address); sim > pol.AddressGate {
		total += pol.AddressWeight * sim
	}

	if yen, ok := property.ParseRent(l.Rent); ok {
		total += pol.RentWeight * s.rentCredit(yen, p.Rent.Yen)
	}

	if LayoutMatch(l.Layout, p.Layout) {
		total += pol.LayoutWeight
	}

	if s.Active(l.StatusText) {
		total += pol.StatusWeight
	}

	return math.Max(0, math.Min(1, total))
}

// Found reports whether a confidence is strictly above the threshold.
func (s *Scorer) Found(confidence float64) bool {
	return confidence > s.policy.Threshold
}

// Active reports whether status text says the listing is still soliciting.
func (s *Scorer) Active(status string) bool {
	for _, kw := range s.policy.ActiveKeywords {
		if kw != "" && strings.Contains(status, kw) {
			return true
		}
	}
	return false
}

func (s *Scorer) rentCredit(a, b int64) float64 {
	if s.policy.TieredRent {
		return TieredRent(a, b)
	}
	if sim := RentSimilarity(a, b); sim > s.policy.RentGate {
		return sim
	}
	return 0
}

// AddressSimilarity is the length of the common prefix of the two normalized
// addresses over the length of the longer one, ignoring spaces.
func AddressSimilarity(a, b string) float64 {
	ra := []rune(compactAddress(a))
	rb := []rune(compactAddress(b))
	longer := max(len(ra), len(rb))
	if longer == 0 {
		return 0
	}

	common := 0
	for common < len(ra) && common < len(rb) && ra[common] == rb[common] {
		common++
	}
	return float64(common) / float64(longer)
}

func compactAddress(s string) string {
	return strings.ReplaceAll(property.NormalizeAddress(s), " ", "")
}

// RentSimilarity is 1 - |a-b| / max(a, b). Unknown rents score 0.
func RentSimilarity(a, b int64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	diff := math.Abs(float64(a - b))
	return 1 - diff/float64(max(a, b))
}

// TieredRent gives stepped credit by the rent difference relative to the
// larger rent: within 5% is full credit, within 10% is 0.8 and within 20% is
// 0.6. Beyond that the credit falls with the similarity and never exceeds 0.6.
func TieredRent(a, b int64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	diff, larger := a-b, max(a, b)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff*20 <= larger:
		return 1
	case diff*10 <= larger:
		return 0.8
	case diff*5 <= larger:
		return 0.6
	default:
		return math.Min(0.6, RentSimilarity(a, b))
	}
}

// LayoutMatch compares layout codes after width and case folding.
func LayoutMatch(a, b string) bool {
	na, nb := property.NormalizeLayout(a), property.NormalizeLayout(b)
	return na != "" && na == nb
}
