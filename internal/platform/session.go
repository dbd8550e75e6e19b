package platform

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Page is a fetched and parsed HTML page.
type Page struct {
	URL    *url.URL
	Status int
	Doc    *goquery.Document
}

// Session is the browsing state of one adapter invocation. It owns a
// collector with its own cookie jar and is never shared.
type Session struct {
	ctx       context.Context
	collector *colly.Collector
	limiter   *HostLimiter
	last      *colly.Response
}

// NewSession creates a session bound to ctx. Requests stop when ctx is done.
func NewSession(ctx context.Context, limiter *HostLimiter, requestTimeout time.Duration, userAgent string) *Session {
	opts := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
		colly.ParseHTTPErrorResponse(),
	}
	if userAgent != "" {
		opts = append(opts, colly.UserAgent(userAgent))
	}

	c := colly.NewCollector(opts...)
	if requestTimeout > 0 {
		c.SetRequestTimeout(requestTimeout)
	}

	s := &Session{ctx: ctx, collector: c, limiter: limiter}
	c.OnResponse(func(r *colly.Response) {
		s.last = r
	})
	return s
}

// Get fetches a page.
func (s *Session) Get(rawURL string) (*Page, error) {
	return s.do(rawURL, func() error {
		return s.collector.Visit(rawURL)
	})
}

// GetForm fetches a page with values encoded in the query string.
func (s *Session) GetForm(rawURL string, values map[string]string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %s: %w", rawURL, err)
	}
	q := u.Query()
	for k, v := range values {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return s.Get(u.String())
}

// Post submits an urlencoded form and follows redirects.
func (s *Session) Post(rawURL string, form map[string]string) (*Page, error) {
	return s.do(rawURL, func() error {
		return s.collector.Post(rawURL, form)
	})
}

func (s *Session) do(rawURL string, send func() error) (*Page, error) {
	if s.limiter != nil {
		if err := s.limiter.WaitURL(s.ctx, rawURL); err != nil {
			return nil, fmt.Errorf("waiting to request %s: %w", rawURL, err)
		}
	}

	s.last = nil
	if err := send(); err != nil {
		return nil, fmt.Errorf("requesting %s: %w", rawURL, err)
	}
	if s.last == nil {
		return nil, fmt.Errorf("requesting %s: no response", rawURL)
	}

	r := s.last
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	return &Page{URL: r.Request.URL, Status: r.StatusCode, Doc: doc}, nil
}
