package platform

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Credentials are the login details for one platform account.
type Credentials struct {
	Username string
	Password string
}

// LoginForm tells FormSite which inputs of the login page take the
// credentials.
type LoginForm struct {
	UsernameSelectors []string
	PasswordSelectors []string
	Username          string
	Password          string
}

// SearchForm is a located search form ready to submit.
type SearchForm struct {
	Action string // as written on the page; empty means the page itself
	Method string
	Field  string
	Values map[string]string
}

// PageState is what a strategy sees after the login form was posted.
type PageState struct {
	URL    *url.URL
	Status int
	Doc    *goquery.Document
}

// firstInput returns the first named input matching one of selectors.
func firstInput(root *goquery.Selection, selectors []string) (*goquery.Selection, bool) {
	for _, sel := range selectors {
		in := root.Find(sel).FilterFunction(func(_ int, s *goquery.Selection) bool {
			_, ok := s.Attr("name")
			return ok
		}).First()
		if in.Length() > 0 {
			return in, true
		}
	}
	return nil, false
}

// formValues collects the values a browser would submit for form, without
// any submit buttons.
func formValues(form *goquery.Selection) map[string]string {
	values := make(map[string]string)
	if form == nil {
		return values
	}

	form.Find("input[name]").Each(func(_ int, in *goquery.Selection) {
		name := in.AttrOr("name", "")
		switch strings.ToLower(in.AttrOr("type", "text")) {
		case "submit", "button", "image", "file", "reset":
			return
		case "checkbox", "radio":
			if _, checked := in.Attr("checked"); !checked {
				return
			}
		}
		values[name] = in.AttrOr("value", "")
	})
	form.Find("select[name]").Each(func(_ int, sel *goquery.Selection) {
		opt := sel.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = sel.Find("option").First()
		}
		values[sel.AttrOr("name", "")] = opt.AttrOr("value", strings.TrimSpace(opt.Text()))
	})
	form.Find("textarea[name]").Each(func(_ int, ta *goquery.Selection) {
		values[ta.AttrOr("name", "")] = ta.Text()
	})
	return values
}

// searchFormFor finds the keyword input matching selectors and describes the
// form around it. An input outside any form is submitted to the page itself.
func searchFormFor(doc *goquery.Document, selectors []string) (SearchForm, bool) {
	in, ok := firstInput(doc.Selection, selectors)
	if !ok {
		return SearchForm{}, false
	}

	form := in.Closest("form")
	sf := SearchForm{
		Field:  in.AttrOr("name", ""),
		Method: "GET",
		Values: map[string]string{},
	}
	if form.Length() > 0 {
		sf.Action = form.AttrOr("action", "")
		sf.Method = strings.ToUpper(form.AttrOr("method", "GET"))
		sf.Values = formValues(form)
	}
	return sf, true
}

// resolve turns a form action into an absolute URL against the page it was
// found on.
func resolve(base *url.URL, action string) string {
	if action == "" {
		return base.String()
	}
	u, err := base.Parse(action)
	if err != nil {
		return base.String()
	}
	return u.String()
}

// listingLayout describes how a site renders its search results.
type listingLayout struct {
	items      []string // one element per listing
	containers []string // result list that may be empty
	title      []string
	rent       []string
	layout     []string
	address    []string
	status     []string
	updated    []string
}

var noResultPhrases = []string{"検索結果がありません", "物件が見つかりません", "該当する物件"}

var zeroCount = regexp.MustCompile(`(?:^|[^0-9])0件`)

// hasNoResultMessage reports whether the page says the search found nothing.
func hasNoResultMessage(doc *goquery.Document) bool {
	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	for _, phrase := range noResultPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return zeroCount.MatchString(text)
}

// parse extracts candidates from a result page. An empty result list or a
// no-results message gives no candidates; a page with neither is an error.
func (l listingLayout) parse(doc *goquery.Document, page *url.URL) ([]Candidate, error) {
	for _, sel := range l.items {
		items := doc.Find(sel)
		if items.Length() == 0 {
			continue
		}
		candidates := make([]Candidate, 0, items.Length())
		items.Each(func(_ int, item *goquery.Selection) {
			candidates = append(candidates, l.candidate(item, page))
		})
		return candidates, nil
	}

	for _, sel := range l.containers {
		if doc.Find(sel).Length() > 0 {
			return nil, nil
		}
	}
	if hasNoResultMessage(doc) {
		return nil, nil
	}
	return nil, errLayoutUnrecognized
}

func (l listingLayout) candidate(item *goquery.Selection, page *url.URL) Candidate {
	c := Candidate{
		Title:         textOf(item, l.title),
		RentDisplayed: textWithDigit(item, l.rent),
		Layout:        textOf(item, l.layout),
		Address:       textOf(item, l.address),
		StatusText:    textOf(item, l.status),
		LastUpdated:   textOf(item, l.updated),
	}
	if c.StatusText == "" {
		c.StatusText = squash(item.Text())
	}
	if href, ok := item.Find("a[href]").First().Attr("href"); ok {
		c.ListingURL = resolve(page, href)
	} else if href, ok := item.Attr("href"); ok {
		c.ListingURL = resolve(page, href)
	}
	if c.Title == "" {
		c.Title = squash(item.Find("a").First().Text())
	}
	return c
}

func textOf(item *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if t := squash(item.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func textWithDigit(item *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		t := squash(item.Find(sel).First().Text())
		if strings.ContainsAny(t, "0123456789０１２３４５６７８９") {
			return t
		}
	}
	return ""
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
