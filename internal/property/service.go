package property

import (
	"fmt"
	"log/slog"

	"github.com/evcraddock/bukkaku/internal/flyer"
)

// Service turns flyers into stored properties.
type Service struct {
	repo      *Repository
	extractor *flyer.Extractor
}

// NewService creates a property service.
func NewService(repo *Repository, extractor *flyer.Extractor) *Service {
	return &Service{repo: repo, extractor: extractor}
}

// ExtractResult is what a flyer yielded.
type ExtractResult struct {
	Source     string      `json:"source"`
	Properties []*Property `json:"properties"`
	Dropped    int         `json:"dropped"`
}

// Extract parses doc and normalizes its records without storing them.
// It fails only when the document has no readable text.
func (s *Service) Extract(doc flyer.Document) (*ExtractResult, error) {
	text, err := s.extractor.ExtractText(doc)
	if err != nil {
		return nil, err
	}

	records := flyer.ExtractRecords(text, doc.Name)
	props, dropped := NormalizeAll(records)

	slog.Info("flyer extracted",
		"source", doc.Name,
		"records", len(records),
		"properties", len(props),
		"dropped", dropped,
	)

	return &ExtractResult{Source: doc.Name, Properties: props, Dropped: dropped}, nil
}

// Import extracts doc and saves every property it yields.
func (s *Service) Import(doc flyer.Document) (*ExtractResult, []*Record, error) {
	result, err := s.Extract(doc)
	if err != nil {
		return nil, nil, err
	}

	saved := make([]*Record, 0, len(result.Properties))
	for _, p := range result.Properties {
		rec, err := s.repo.Upsert(p)
		if err != nil {
			return nil, nil, fmt.Errorf("importing %s: %w", doc.Name, err)
		}
		saved = append(saved, rec)
	}

	return result, saved, nil
}
