package platform

import (
	"fmt"
	"strings"
)

// Spec is the configuration of one site as read from the config file.
type Spec struct {
	Name        string
	Kind        string
	BaseURL     string
	LoginURL    string
	SearchURL   string
	Credentials Credentials
}

// New builds the adapter for spec.
func New(spec Spec, shared Shared) (Adapter, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("platform name is required")
	}

	if spec.Kind == KindSimulated {
		return NewSimulated(spec.Name, shared.Scorer, shared.TopN), nil
	}

	strategy, ok := StrategyFor(spec.Kind)
	if !ok {
		return nil, fmt.Errorf("platform %s: unknown kind %q", spec.Name, spec.Kind)
	}

	site := SiteConfig{
		Name:        spec.Name,
		LoginURL:    spec.LoginURL,
		SearchURL:   spec.SearchURL,
		Credentials: spec.Credentials,
	}
	base := strings.TrimRight(spec.BaseURL, "/")
	if site.LoginURL == "" {
		if base == "" {
			return nil, fmt.Errorf("platform %s: base_url or login_url is required", spec.Name)
		}
		site.LoginURL = base + "/login"
	}
	if site.SearchURL == "" && base != "" {
		site.SearchURL = base + "/search"
	}

	return NewFormSite(site, strategy, shared), nil
}

// NewAll builds adapters for specs in order.
func NewAll(specs []Spec, shared Shared) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(specs))
	for _, spec := range specs {
		a, err := New(spec, shared)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
