// Package property provides the canonical property model, the normalizer
// that builds it from raw flyer records, and its data access.
package property

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a stored property does not exist.
var ErrNotFound = errors.New("property not found")

// ErrAmbiguousID is matched by *AmbiguousIDError.
var ErrAmbiguousID = errors.New("property id is ambiguous")

// AmbiguousIDError reports an ID stored from more than one flyer.
type AmbiguousIDError struct {
	ID      string
	Sources []string
}

func (e *AmbiguousIDError) Error() string {
	return fmt.Sprintf("property %s is in %d flyers (%s); pick one with its source",
		e.ID, len(e.Sources), strings.Join(e.Sources, ", "))
}

// Is lets errors.Is match ErrAmbiguousID.
func (e *AmbiguousIDError) Is(target error) bool {
	return target == ErrAmbiguousID
}

// FollowUpStatus tracks whether a property still needs a phone call.
type FollowUpStatus string

const (
	FollowUpNone    FollowUpStatus = "none"
	FollowUpPending FollowUpStatus = "pending"
	FollowUpCalled  FollowUpStatus = "called"
)

// ValidFollowUpStatus returns true if s is a known follow-up status.
func ValidFollowUpStatus(s string) bool {
	switch FollowUpStatus(s) {
	case FollowUpNone, FollowUpPending, FollowUpCalled:
		return true
	}
	return false
}

// Rent keeps the advertised rent string next to its value in yen.
type Rent struct {
	Display string `json:"display"`
	Yen     int64  `json:"yen"`
}

// Property is a validated, normalized property. It is never modified after
// Normalize returns it.
type Property struct {
	ID            string `json:"id"`
	Address       string `json:"address"`
	Rent          Rent   `json:"rent"`
	Layout        string `json:"layout"`
	Area          string `json:"area,omitempty"`
	StationInfo   string `json:"station_info"`
	WalkMinutes   int    `json:"walk_minutes,omitempty"`
	BuildingAge   string `json:"building_age,omitempty"`
	ManagementFee string `json:"management_fee,omitempty"`
	SourceFile    string `json:"source_file"`
}

// Record is a stored property with its latest follow-up state.
type Record struct {
	Property
	FollowUpStatus FollowUpStatus `json:"follow_up_status"`
	FollowUpNotes  string         `json:"follow_up_notes,omitempty"`
	FoundSites     []string       `json:"found_sites,omitempty"`
	LastCheckedAt  *time.Time     `json:"last_checked_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// scanRecord scans a stored property from a database row.
func scanRecord(row interface{ Scan(...interface{}) error }) (*Record, error) {
	var r Record
	var status, foundSites string
	var checked sql.NullTime

	err := row.Scan(
		&r.ID, &r.Address, &r.Rent.Display, &r.Rent.Yen, &r.Layout, &r.Area,
		&r.StationInfo, &r.WalkMinutes, &r.BuildingAge, &r.ManagementFee, &r.SourceFile,
		&status, &r.FollowUpNotes, &foundSites, &checked, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.FollowUpStatus = FollowUpStatus(status)
	if r.FollowUpStatus == "" {
		r.FollowUpStatus = FollowUpNone
	}
	if foundSites != "" {
		r.FoundSites = strings.Split(foundSites, ",")
	}
	if checked.Valid {
		r.LastCheckedAt = &checked.Time
	}

	return &r, nil
}
