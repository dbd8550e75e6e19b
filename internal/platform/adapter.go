// Package platform checks whether a property is listed on an external
// rental-listing site.
package platform

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evcraddock/bukkaku/internal/match"
	"github.com/evcraddock/bukkaku/internal/property"
	"github.com/evcraddock/bukkaku/internal/query"
)

// DefaultTopN is the number of best candidates kept on a result.
const DefaultTopN = 3

// ErrorKind says why a site check failed.
type ErrorKind string

const (
	AuthenticationFailed ErrorKind = "AuthenticationFailed"
	SearchFormNotFound   ErrorKind = "SearchFormNotFound"
	NetworkTimeout       ErrorKind = "NetworkTimeout"
	ResultParseFailed    ErrorKind = "ResultParseFailed"
)

// AvailabilityStatus is the vacancy a listing advertises.
type AvailabilityStatus string

const (
	Vacant   AvailabilityStatus = "vacant"
	Occupied AvailabilityStatus = "occupied"
	Unknown  AvailabilityStatus = "unknown"
)

var (
	vacantKeywords   = []string{"空室", "募集中", "入居可", "申込受付中"}
	occupiedKeywords = []string{"満室", "入居中", "成約", "申込あり"}
)

// AvailabilityFromStatus reads the vacancy out of a listing's status text.
func AvailabilityFromStatus(text string) AvailabilityStatus {
	for _, kw := range vacantKeywords {
		if strings.Contains(text, kw) {
			return Vacant
		}
	}
	for _, kw := range occupiedKeywords {
		if strings.Contains(text, kw) {
			return Occupied
		}
	}
	return Unknown
}

// Candidate is one listing from a site's search results.
type Candidate struct {
	Title         string  `json:"title"`
	RentDisplayed string  `json:"rent_displayed"`
	Layout        string  `json:"layout"`
	Address       string  `json:"address"`
	ListingURL    string  `json:"listing_url"`
	StatusText    string  `json:"status_text"`
	LastUpdated   string  `json:"last_updated,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// Listing returns the fields the scorer compares.
func (c Candidate) Listing() match.Listing {
	return match.Listing{
		Address:    c.Address,
		Rent:       c.RentDisplayed,
		Layout:     c.Layout,
		StatusText: c.StatusText,
	}
}

// Result is the outcome of checking one site.
type Result struct {
	SiteName           string             `json:"site_name"`
	Found              bool               `json:"found"`
	Confidence         float64            `json:"confidence"`
	MatchedCandidates  []Candidate        `json:"matched_candidates"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status"`
	Notes              string             `json:"notes"`
	ErrorKind          ErrorKind          `json:"error_kind,omitempty"`
	Query              string             `json:"query,omitempty"`
	Elapsed            time.Duration      `json:"elapsed"`
}

// Failed reports whether the check ended in an error.
func (r Result) Failed() bool {
	return r.ErrorKind != ""
}

// Adapter checks one listing site. Implementations must not modify the
// property and must return when ctx is done.
type Adapter interface {
	Name() string
	Check(ctx context.Context, q query.SearchQuery, p *property.Property) Result
}

// Failure builds the result of a check that could not complete.
func Failure(site string, kind ErrorKind, notes string) Result {
	return Result{
		SiteName:           site,
		AvailabilityStatus: Unknown,
		Notes:              notes,
		ErrorKind:          kind,
	}
}

// Assess scores candidates against p and keeps the best topN. The site is
// found when the best confidence is above the scorer's threshold.
func Assess(site string, scorer *match.Scorer, p *property.Property, candidates []Candidate, topN int) Result {
	if len(candidates) == 0 {
		return Result{SiteName: site, AvailabilityStatus: Unknown, Notes: "no results"}
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	scored := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Confidence = scorer.Score(c.Listing(), p)
		scored[i] = c
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Confidence > scored[j].Confidence
	})
	if len(scored) > topN {
		scored = scored[:topN]
	}

	best := scored[0]
	found := scorer.Found(best.Confidence)
	notes := fmt.Sprintf("%d results, best match %.2f", len(candidates), best.Confidence)
	if !found {
		notes = fmt.Sprintf("%d results, none above %.2f", len(candidates), scorer.Policy().Threshold)
	}

	return Result{
		SiteName:           site,
		Found:              found,
		Confidence:         best.Confidence,
		MatchedCandidates:  scored,
		AvailabilityStatus: AvailabilityFromStatus(best.StatusText),
		Notes:              notes,
	}
}
