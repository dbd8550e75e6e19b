package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/evcraddock/bukkaku/internal/match"
	"github.com/evcraddock/bukkaku/internal/property"
	"github.com/evcraddock/bukkaku/internal/query"
)

// State is a step of a site check.
type State string

const (
	StateInit           State = "INIT"
	StateAuthenticating State = "AUTHENTICATING"
	StateSearching      State = "SEARCHING"
	StateParsing        State = "PARSING"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

var errLayoutUnrecognized = errors.New("result page layout not recognized")

// Strategy holds what differs between form-based listing sites.
type Strategy interface {
	LoginFields(c Credentials) LoginForm
	AuthenticationSucceeded(state PageState) bool
	SearchForm(doc *goquery.Document) (SearchForm, bool)
	ParseResults(doc *goquery.Document, page *url.URL) ([]Candidate, error)
}

// SiteConfig locates one site and the account used on it.
type SiteConfig struct {
	Name        string
	LoginURL    string
	SearchURL   string
	Credentials Credentials
}

// Shared is the runtime state every adapter uses.
type Shared struct {
	Scorer         *match.Scorer
	Limiter        *HostLimiter
	TopN           int
	RequestTimeout time.Duration
	UserAgent      string
}

// FormSite checks a site by logging in through its HTML login form and
// submitting its search form. Each Check runs in its own Session.
type FormSite struct {
	site     SiteConfig
	strategy Strategy
	shared   Shared
}

// NewFormSite creates a form-driven adapter.
func NewFormSite(site SiteConfig, strategy Strategy, shared Shared) *FormSite {
	return &FormSite{site: site, strategy: strategy, shared: shared}
}

// Name returns the configured site name.
func (f *FormSite) Name() string {
	return f.site.Name
}

// stateError records the state a check failed in.
type stateError struct {
	state State
	err   error
}

func (e *stateError) Error() string {
	return fmt.Sprintf("%s: %v", e.state, e.err)
}

func (e *stateError) Unwrap() error {
	return e.err
}

// Check logs in, searches for q and scores the listings found.
func (f *FormSite) Check(ctx context.Context, q query.SearchQuery, p *property.Property) Result {
	start := time.Now()
	log := slog.With("site", f.site.Name, "property_id", p.ID, "query", q.Keywords())

	candidates, err := f.run(ctx, q, log)

	var res Result
	if err != nil {
		kind := classify(ctx, err)
		log.Warn("site check failed", "state", StateFailed, "error_kind", kind, "error", err)
		res = Failure(f.site.Name, kind, err.Error())
	} else {
		log.Debug("entering state", "state", StateDone, "candidates", len(candidates))
		res = Assess(f.site.Name, f.shared.Scorer, p, candidates, f.shared.TopN)
	}

	res.Query = q.Keywords()
	res.Elapsed = time.Since(start)
	return res
}

func (f *FormSite) run(ctx context.Context, q query.SearchQuery, log *slog.Logger) ([]Candidate, error) {
	log.Debug("entering state", "state", StateInit)
	session := NewSession(ctx, f.shared.Limiter, f.shared.RequestTimeout, f.shared.UserAgent)

	log.Debug("entering state", "state", StateAuthenticating)
	landing, err := f.authenticate(session)
	if err != nil {
		return nil, &stateError{StateAuthenticating, err}
	}

	log.Debug("entering state", "state", StateSearching)
	results, err := f.search(session, landing, q)
	if err != nil {
		return nil, &stateError{StateSearching, err}
	}

	log.Debug("entering state", "state", StateParsing)
	candidates, err := f.strategy.ParseResults(results.Doc, results.URL)
	if err != nil {
		return nil, &stateError{StateParsing, err}
	}
	return candidates, nil
}

// authenticate posts the credentials and returns the page the site lands on.
func (f *FormSite) authenticate(s *Session) (*Page, error) {
	loginPage, err := s.Get(f.site.LoginURL)
	if err != nil {
		return nil, err
	}
	if loginPage.Status >= 400 {
		return nil, fmt.Errorf("login page returned status %d", loginPage.Status)
	}

	fields := f.strategy.LoginFields(f.site.Credentials)
	pass, ok := firstInput(loginPage.Doc.Selection, fields.PasswordSelectors)
	if !ok {
		return nil, errors.New("login form not found")
	}
	form := pass.Closest("form")
	if form.Length() == 0 {
		return nil, errors.New("password input is not inside a form")
	}
	user, ok := firstInput(form, fields.UsernameSelectors)
	if !ok {
		return nil, errors.New("username input not found")
	}

	values := formValues(form)
	values[user.AttrOr("name", "")] = fields.Username
	values[pass.AttrOr("name", "")] = fields.Password

	action := resolve(loginPage.URL, form.AttrOr("action", ""))
	landing, err := s.Post(action, values)
	if err != nil {
		return nil, err
	}

	state := PageState{URL: landing.URL, Status: landing.Status, Doc: landing.Doc}
	if !f.strategy.AuthenticationSucceeded(state) {
		return nil, fmt.Errorf("login rejected (landed on %s, status %d)", landing.URL, landing.Status)
	}
	return landing, nil
}

// search finds the search form, on the landing page or else on the
// configured search page, and submits the keywords.
func (f *FormSite) search(s *Session, landing *Page, q query.SearchQuery) (*Page, error) {
	page := landing
	form, ok := f.strategy.SearchForm(page.Doc)
	if !ok && f.site.SearchURL != "" {
		var err error
		page, err = s.Get(f.site.SearchURL)
		if err != nil {
			return nil, err
		}
		if page.Status >= 400 {
			return nil, fmt.Errorf("search page returned status %d", page.Status)
		}
		form, ok = f.strategy.SearchForm(page.Doc)
	}
	if !ok {
		return nil, errors.New("search form not found")
	}

	values := form.Values
	if values == nil {
		values = map[string]string{}
	}
	values[form.Field] = q.Keywords()

	action := resolve(page.URL, form.Action)
	var (
		results *Page
		err     error
	)
	if form.Method == "POST" {
		results, err = s.Post(action, values)
	} else {
		results, err = s.GetForm(action, values)
	}
	if err != nil {
		return nil, err
	}
	if results.Status >= 400 {
		return nil, fmt.Errorf("search returned status %d", results.Status)
	}
	return results, nil
}

// classify maps a failed check to its error kind. Timeouts win over the
// state the check was in.
func classify(ctx context.Context, err error) ErrorKind {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NetworkTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NetworkTimeout
	}

	var se *stateError
	if errors.As(err, &se) {
		switch se.state {
		case StateAuthenticating:
			return AuthenticationFailed
		case StateSearching:
			return SearchFormNotFound
		}
	}
	return ResultParseFailed
}
