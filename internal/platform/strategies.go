package platform

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy kinds accepted in configuration.
const (
	KindITANDI    = "itandi"
	KindIerabu    = "ierabu"
	KindATBB      = "atbb"
	KindSimulated = "simulated"
)

// StrategyFor returns the strategy of a form-based site kind.
func StrategyFor(kind string) (Strategy, bool) {
	switch kind {
	case KindITANDI:
		return itandi{}, true
	case KindIerabu:
		return ierabu{}, true
	case KindATBB:
		return atbb{}, true
	}
	return nil, false
}

// KnownKind reports whether kind can be configured.
func KnownKind(kind string) bool {
	if kind == KindSimulated {
		return true
	}
	_, ok := StrategyFor(kind)
	return ok
}

// landedOutsideLogin is the login heuristic the sites share: the post-login
// URL no longer mentions login, or it names one of the members' pages.
func landedOutsideLogin(s PageState, memberPages ...string) bool {
	if s.URL == nil || s.Status >= 400 {
		return false
	}
	u := strings.ToLower(s.URL.String())
	if !strings.Contains(u, "login") {
		return true
	}
	for _, p := range memberPages {
		if strings.Contains(u, p) {
			return true
		}
	}
	return false
}

var passwordInputs = []string{`input[type="password"]`, `input[name="password"]`, "#password"}

var commonRent = []string{".rent", ".price", `[class*="rent"]`, `[class*="price"]`}

// ITANDI BB

type itandi struct{}

var itandiListings = listingLayout{
	items:      []string{".property-item", ".listing-item", ".search-result-item", ".property-card", ".listing-card"},
	containers: []string{".search-results", ".property-list", ".listing-list", "#search-results"},
	title:      []string{".property-name", ".title", "h2", "h3"},
	rent:       commonRent,
	layout:     []string{".layout", ".floor-plan", `[class*="layout"]`},
	address:    []string{".address", `[class*="address"]`},
	status:     []string{".status", `[class*="status"]`},
	updated:    []string{".updated-at", "time"},
}

func (itandi) LoginFields(c Credentials) LoginForm {
	return LoginForm{
		UsernameSelectors: []string{`input[type="email"]`, `input[name="email"]`, "#email", "#username"},
		PasswordSelectors: passwordInputs,
		Username:          c.Username,
		Password:          c.Password,
	}
}

func (itandi) AuthenticationSucceeded(s PageState) bool {
	return landedOutsideLogin(s, "dashboard")
}

func (itandi) SearchForm(doc *goquery.Document) (SearchForm, bool) {
	return searchFormFor(doc, []string{`input[type="search"]`, `input[name="search"]`, "#search", ".search-input"})
}

func (itandi) ParseResults(doc *goquery.Document, page *url.URL) ([]Candidate, error) {
	return itandiListings.parse(doc, page)
}

// いえらぶBB

type ierabu struct{}

var ierabuListings = listingLayout{
	items:      []string{".bukken-item", "tr.bukken", "div.bukken", ".property-item", ".listing-item", ".result-item"},
	containers: []string{".bukken-list", ".property-list", ".search-result"},
	title:      []string{".bukken-name", ".title", "h3"},
	rent:       append([]string{".chinryou", `[class*="chinryou"]`}, commonRent...),
	layout:     []string{".madori", `[class*="madori"]`, ".layout"},
	address:    []string{".shozaichi", ".address", `[class*="address"]`},
	status:     []string{".boshu", ".status", `[class*="status"]`},
	updated:    []string{".koshin", ".updated"},
}

func (ierabu) LoginFields(c Credentials) LoginForm {
	return LoginForm{
		UsernameSelectors: []string{`input[name="loginId"]`, `input[name="email"]`, "#loginId", "#email"},
		PasswordSelectors: passwordInputs,
		Username:          c.Username,
		Password:          c.Password,
	}
}

func (ierabu) AuthenticationSucceeded(s PageState) bool {
	return landedOutsideLogin(s, "main", "top")
}

func (ierabu) SearchForm(doc *goquery.Document) (SearchForm, bool) {
	return searchFormFor(doc, []string{
		`input[name="search"]`, `input[name="keyword"]`, "#search", "#keyword", ".search-input",
		`input[placeholder*="検索"]`, `input[placeholder*="キーワード"]`,
	})
}

func (ierabu) ParseResults(doc *goquery.Document, page *url.URL) ([]Candidate, error) {
	return ierabuListings.parse(doc, page)
}

// ATBB

type atbb struct{}

var atbbListings = listingLayout{
	items:      []string{".property-item", ".bukken-item", "tr.bukken-row", ".result-item"},
	containers: []string{".result-list", ".bukken-list"},
	title:      []string{".bukken-name", ".title", "h3"},
	rent:       append([]string{".chinryou"}, commonRent...),
	layout:     []string{".madori", ".layout"},
	address:    []string{".shozaichi", ".address"},
	status:     []string{".status", ".boshu"},
	updated:    []string{".updated", ".koshin"},
}

func (atbb) LoginFields(c Credentials) LoginForm {
	return LoginForm{
		UsernameSelectors: []string{`input[name="loginId"]`, `input[name="memberNo"]`, "#loginId", `input[type="text"]`},
		PasswordSelectors: passwordInputs,
		Username:          c.Username,
		Password:          c.Password,
	}
}

func (atbb) AuthenticationSucceeded(s PageState) bool {
	return landedOutsideLogin(s, "mypage")
}

func (atbb) SearchForm(doc *goquery.Document) (SearchForm, bool) {
	return searchFormFor(doc, []string{`input[name="keyword"]`, `input[name="freeword"]`, "#keyword", `input[type="search"]`})
}

func (atbb) ParseResults(doc *goquery.Document, page *url.URL) ([]Candidate, error) {
	return atbbListings.parse(doc, page)
}
