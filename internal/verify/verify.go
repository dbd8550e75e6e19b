// Package verify runs every configured listing site against a property and
// decides whether it needs a phone follow-up.
package verify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/bukkaku/internal/platform"
	"github.com/evcraddock/bukkaku/internal/property"
	"github.com/evcraddock/bukkaku/internal/query"
)

const (
	DefaultAdapterTimeout = 30 * time.Second
	DefaultParallel       = 2
)

// Options tune an Orchestrator.
type Options struct {
	// AdapterTimeout bounds a single adapter invocation.
	AdapterTimeout time.Duration
	// Parallel is how many properties VerifyAll checks at once.
	Parallel int
}

// Report is the outcome of verifying one property.
type Report struct {
	RunID                 string             `json:"run_id"`
	Property              *property.Property `json:"property"`
	Results               []platform.Result  `json:"results"`
	OverallFound          bool               `json:"overall_found"`
	FoundSites            []string           `json:"found_sites"`
	PhoneFollowUpRequired bool               `json:"phone_follow_up_required"`
	FollowUpNotes         string             `json:"follow_up_notes"`
	StartedAt             time.Time          `json:"started_at"`
	FinishedAt            time.Time          `json:"finished_at"`
}

// Verification is the part of the report kept on the stored property.
func (r *Report) Verification() property.Verification {
	status := property.FollowUpNone
	if r.PhoneFollowUpRequired {
		status = property.FollowUpPending
	}
	return property.Verification{
		FoundSites: r.FoundSites,
		FollowUp:   status,
		Notes:      r.FollowUpNotes,
		CheckedAt:  r.FinishedAt,
	}
}

// Orchestrator fans a property out to its adapters.
type Orchestrator struct {
	adapters []platform.Adapter
	opts     Options
}

// New creates an orchestrator over adapters, which are reported in the
// order given.
func New(adapters []platform.Adapter, opts Options) *Orchestrator {
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = DefaultAdapterTimeout
	}
	if opts.Parallel <= 0 {
		opts.Parallel = DefaultParallel
	}
	return &Orchestrator{adapters: adapters, opts: opts}
}

// Adapters returns the configured adapters.
func (o *Orchestrator) Adapters() []platform.Adapter {
	return o.adapters
}

// Verify checks p on every adapter concurrently. A failing adapter never
// stops the others; its result carries the error kind instead.
func (o *Orchestrator) Verify(ctx context.Context, p *property.Property) *Report {
	started := time.Now()
	runID := uuid.NewString()
	queries := query.Build(p)

	slog.Debug("verifying property", "run_id", runID, "property_id", p.ID, "sites", len(o.adapters), "queries", len(queries))

	results := make([]platform.Result, len(o.adapters))
	var g errgroup.Group
	for i, a := range o.adapters {
		g.Go(func() error {
			results[i] = o.checkSite(ctx, a, queries, p)
			return nil // best effort: never cancel siblings
		})
	}
	_ = g.Wait()

	report := aggregate(p, results)
	report.RunID = runID
	report.StartedAt = started
	report.FinishedAt = time.Now()

	slog.Info("verification finished",
		"run_id", runID,
		"property_id", p.ID,
		"found", report.OverallFound,
		"found_sites", report.FoundSites,
		"follow_up", report.PhoneFollowUpRequired,
		"elapsed", report.FinishedAt.Sub(started),
	)
	return report
}

// VerifyAll verifies several properties, a bounded number at a time.
// Reports are returned in the order of props.
func (o *Orchestrator) VerifyAll(ctx context.Context, props []*property.Property) []*Report {
	reports := make([]*Report, len(props))

	var g errgroup.Group
	g.SetLimit(o.opts.Parallel)
	for i, p := range props {
		g.Go(func() error {
			reports[i] = o.Verify(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

// checkSite tries the query groups in order on one adapter. It stops at the
// first found result or the first failure, and otherwise keeps the most
// confident result.
func (o *Orchestrator) checkSite(ctx context.Context, a platform.Adapter, queries []query.SearchQuery, p *property.Property) platform.Result {
	if len(queries) == 0 {
		return platform.Result{
			SiteName:           a.Name(),
			AvailabilityStatus: platform.Unknown,
			Notes:              "no search keywords",
		}
	}

	var best platform.Result
	for i, q := range queries {
		res := o.invoke(ctx, a, q, p)
		if res.Found || res.Failed() {
			return res
		}
		if i == 0 || res.Confidence > best.Confidence {
			best = res
		}
	}
	return best
}

// invoke runs one adapter call under the adapter timeout. An adapter that
// has not returned when the timeout fires is abandoned.
func (o *Orchestrator) invoke(ctx context.Context, a platform.Adapter, q query.SearchQuery, p *property.Property) platform.Result {
	ictx, cancel := context.WithTimeout(ctx, o.opts.AdapterTimeout)
	defer cancel()

	done := make(chan platform.Result, 1)
	go func() {
		done <- a.Check(ictx, q, p)
	}()

	select {
	case res := <-done:
		return res
	case <-ictx.Done():
		slog.Warn("abandoning unresponsive site",
			"site", a.Name(),
			"property_id", p.ID,
			"query", q.Keywords(),
			"timeout", o.opts.AdapterTimeout,
		)
		res := platform.Failure(a.Name(), platform.NetworkTimeout, "no response before timeout: "+ictx.Err().Error())
		res.Query = q.Keywords()
		res.Elapsed = o.opts.AdapterTimeout
		return res
	}
}

func aggregate(p *property.Property, results []platform.Result) *Report {
	report := &Report{
		Property:   p,
		Results:    results,
		FoundSites: []string{},
	}
	for _, r := range results {
		if r.Found {
			report.OverallFound = true
			report.FoundSites = append(report.FoundSites, r.SiteName)
		}
	}
	report.PhoneFollowUpRequired = !report.OverallFound
	report.FollowUpNotes = FollowUpNotes(p, report.FoundSites)
	return report
}
