package platform

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/evcraddock/bukkaku/internal/match"
	"github.com/evcraddock/bukkaku/internal/property"
	"github.com/evcraddock/bukkaku/internal/query"
)

// simulatedHitPercent is how often a simulated site lists a property.
const simulatedHitPercent = 60

// Simulated is a deterministic stand-in for a listing site. The same
// property always gets the same answer from the same site name. It makes no
// network requests and is only used when configured explicitly.
type Simulated struct {
	name   string
	scorer *match.Scorer
	topN   int
}

// NewSimulated creates a simulated site.
func NewSimulated(name string, scorer *match.Scorer, topN int) *Simulated {
	return &Simulated{name: name, scorer: scorer, topN: topN}
}

// Name returns the configured site name.
func (s *Simulated) Name() string {
	return s.name
}

// Check answers from a hash of the property's address, rent and the site name.
func (s *Simulated) Check(ctx context.Context, q query.SearchQuery, p *property.Property) Result {
	start := time.Now()
	var res Result

	if ctx.Err() != nil {
		res = Failure(s.name, NetworkTimeout, ctx.Err().Error())
	} else if s.listed(p) {
		c := Candidate{
			Title:         p.Address,
			RentDisplayed: p.Rent.Display,
			Layout:        p.Layout,
			Address:       p.Address,
			StatusText:    "募集中",
		}
		res = Assess(s.name, s.scorer, p, []Candidate{c}, s.topN)
	} else {
		res = Assess(s.name, s.scorer, p, nil, s.topN)
	}

	res.Query = q.Keywords()
	res.Elapsed = time.Since(start)
	return res
}

func (s *Simulated) listed(p *property.Property) bool {
	h := fnv.New64a()
	h.Write([]byte(p.Address))
	h.Write([]byte{0})
	h.Write([]byte(p.Rent.Display))
	h.Write([]byte{0})
	h.Write([]byte(s.name))
	return h.Sum64()%100 < simulatedHitPercent
}
