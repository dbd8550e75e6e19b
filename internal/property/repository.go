package property

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Repository stores canonical properties and their latest follow-up state.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a property repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// upsertSQL refreshes the extracted fields of an existing row but leaves its
// follow-up state alone. A row is identified by its ID and source flyer:
// generated IDs from different flyers may be equal.
const upsertSQL = `INSERT INTO properties
	(id, address, rent_display, rent_yen, layout, area, station_info, walk_minutes, building_age, management_fee, source_file)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id, source_file) DO UPDATE SET
		address = excluded.address,
		rent_display = excluded.rent_display,
		rent_yen = excluded.rent_yen,
		layout = excluded.layout,
		area = excluded.area,
		station_info = excluded.station_info,
		walk_minutes = excluded.walk_minutes,
		building_age = excluded.building_age,
		management_fee = excluded.management_fee,
		updated_at = CURRENT_TIMESTAMP`

const selectColumns = `id, address, rent_display, rent_yen, layout, area, station_info, walk_minutes, building_age, management_fee, source_file, follow_up_status, follow_up_notes, found_sites, last_checked_at, created_at, updated_at`

// Upsert saves p, replacing the extracted fields of a property with the
// same ID from the same source.
func (r *Repository) Upsert(p *Property) (*Record, error) {
	_, err := r.db.Exec(upsertSQL,
		p.ID, p.Address, p.Rent.Display, p.Rent.Yen, p.Layout, p.Area,
		p.StationInfo, p.WalkMinutes, p.BuildingAge, p.ManagementFee, p.SourceFile,
	)
	if err != nil {
		return nil, fmt.Errorf("saving property %s: %w", p.ID, err)
	}

	return r.Get(p.ID, p.SourceFile)
}

// GetByID returns the stored property with the given ID. It fails with an
// *AmbiguousIDError when more than one flyer produced that ID.
func (r *Repository) GetByID(id string) (*Record, error) {
	return r.Get(id, "")
}

// Get returns a stored property by ID and source flyer. An empty source
// matches any flyer as long as only one has the ID.
func (r *Repository) Get(id, source string) (_ *Record, err error) {
	query := fmt.Sprintf("SELECT %s FROM properties WHERE id = ?", selectColumns)
	args := []interface{}{id}
	if source != "" {
		query += " AND source_file = ?"
		args = append(args, source)
	}
	query += " ORDER BY source_file"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying property %s: %w", id, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	var found []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property %s: %w", id, err)
		}
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying property %s: %w", id, err)
	}

	switch len(found) {
	case 0:
		if source != "" {
			return nil, fmt.Errorf("property %s from %s: %w", id, source, ErrNotFound)
		}
		return nil, fmt.Errorf("property %s: %w", id, ErrNotFound)
	case 1:
		return found[0], nil
	}
	amb := &AmbiguousIDError{ID: id}
	for _, rec := range found {
		amb.Sources = append(amb.Sources, rec.SourceFile)
	}
	return nil, amb
}

// ListOptions controls filtering for List.
type ListOptions struct {
	FollowUp FollowUpStatus // empty = all
	Source   string         // empty = all
}

// List returns stored properties, most recently updated first.
func (r *Repository) List(opts ListOptions) (records []*Record, err error) {
	query := fmt.Sprintf("SELECT %s FROM properties", selectColumns)
	var args []interface{}
	var conditions []string

	if opts.FollowUp != "" {
		conditions = append(conditions, "follow_up_status = ?")
		args = append(args, string(opts.FollowUp))
	}
	if opts.Source != "" {
		conditions = append(conditions, "source_file = ?")
		args = append(args, opts.Source)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}

	return records, nil
}

// Verification is the outcome of a verification run as stored on a property.
type Verification struct {
	FoundSites []string
	FollowUp   FollowUpStatus
	Notes      string
	CheckedAt  time.Time
}

// RecordVerification replaces the stored follow-up state of p with the
// latest run's outcome.
func (r *Repository) RecordVerification(p *Property, v Verification) error {
	if !ValidFollowUpStatus(string(v.FollowUp)) {
		return fmt.Errorf("invalid follow-up status: %s", v.FollowUp)
	}

	result, err := r.db.Exec(
		`UPDATE properties
		 SET follow_up_status = ?, follow_up_notes = ?, found_sites = ?, last_checked_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND source_file = ?`,
		string(v.FollowUp), v.Notes, strings.Join(v.FoundSites, ","), v.CheckedAt.UTC(), p.ID, p.SourceFile,
	)
	if err != nil {
		return fmt.Errorf("recording verification: %w", err)
	}

	return checkAffected(result, p.ID)
}

// UpdateFollowUpStatus sets the follow-up status for a property and returns
// the updated record. Source picks the flyer as in Get.
func (r *Repository) UpdateFollowUpStatus(id, source string, status FollowUpStatus) (*Record, error) {
	if !ValidFollowUpStatus(string(status)) {
		return nil, fmt.Errorf("invalid follow-up status: %s", status)
	}

	rec, err := r.Get(id, source)
	if err != nil {
		return nil, err
	}

	result, err := r.db.Exec(
		"UPDATE properties SET follow_up_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND source_file = ?",
		string(status), rec.ID, rec.SourceFile,
	)
	if err != nil {
		return nil, fmt.Errorf("updating follow-up status: %w", err)
	}
	if err := checkAffected(result, id); err != nil {
		return nil, err
	}

	return r.Get(rec.ID, rec.SourceFile)
}

// Delete removes a property. Source picks the flyer as in Get. It returns
// the removed record.
func (r *Repository) Delete(id, source string) (*Record, error) {
	rec, err := r.Get(id, source)
	if err != nil {
		return nil, err
	}

	result, err := r.db.Exec("DELETE FROM properties WHERE id = ? AND source_file = ?", rec.ID, rec.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("deleting property: %w", err)
	}
	if err := checkAffected(result, id); err != nil {
		return nil, err
	}

	return rec, nil
}

func checkAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("property %s: %w", id, ErrNotFound)
	}
	return nil
}
