package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/punchcard/internal/model"
)

// ClockEventStore is the event store adapter. ListByUserAndRange is the read
// the report aggregator consumes: stable, complete, ascending by timestamp.
type ClockEventStore struct {
	db *sql.DB
}

func NewClockEventStore(db *sql.DB) *ClockEventStore {
	return &ClockEventStore{db: db}
}

func scanClockEvent(scanner interface{ Scan(...any) error }) (*model.ClockEvent, error) {
	var e model.ClockEvent
	err := scanner.Scan(&e.ID, &e.UserID, &e.Type, &e.Timestamp, &e.Latitude, &e.Longitude, &e.Address, &e.PONumber)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const clockEventCols = `id, user_id, type, timestamp, latitude, longitude, address, po_number`

func (s *ClockEventStore) Create(userID int64, typ model.EventType, ts model.Timestamp, lat, lon float64, address, poNumber string) (*model.ClockEvent, error) {
	result, err := s.db.Exec(
		`INSERT INTO clock_events (user_id, type, timestamp, latitude, longitude, address, po_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, string(typ), ts, lat, lon, address, poNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("insert clock event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ClockEventStore) GetByID(id int64) (*model.ClockEvent, error) {
	row := s.db.QueryRow(`SELECT `+clockEventCols+` FROM clock_events WHERE id = ?`, id)
	e, err := scanClockEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clock event: %w", err)
	}
	return e, nil
}

// ListByUserAndRange returns all of a user's events inside the inclusive
// window, ascending by timestamp, ties broken by id.
func (s *ClockEventStore) ListByUserAndRange(userID int64, start, end model.Timestamp) ([]model.ClockEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+clockEventCols+` FROM clock_events
		 WHERE user_id = ? AND timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp ASC, id ASC`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("query clock events by range: %w", err)
	}
	return collectClockEvents(rows)
}

// ListByUser returns a user's most recent events, newest first.
func (s *ClockEventStore) ListByUser(userID int64, limit int) ([]model.ClockEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+clockEventCols+` FROM clock_events
		 WHERE user_id = ?
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query clock events by user: %w", err)
	}
	return collectClockEvents(rows)
}

func collectClockEvents(rows *sql.Rows) ([]model.ClockEvent, error) {
	defer rows.Close()
	var events []model.ClockEvent
	for rows.Next() {
		e, err := scanClockEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clock event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ListAllWithUser returns recent events across all users joined with the
// owner's identity, newest first.
func (s *ClockEventStore) ListAllWithUser(limit int) ([]model.ClockEventWithUser, error) {
	rows, err := s.db.Query(
		`SELECT e.id, e.user_id, e.type, e.timestamp, e.latitude, e.longitude, e.address, e.po_number,
		        u.email, u.first_name, u.last_name
		 FROM clock_events e
		 JOIN users u ON u.id = e.user_id
		 ORDER BY e.timestamp DESC, e.id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query clock events with users: %w", err)
	}
	defer rows.Close()

	var events []model.ClockEventWithUser
	for rows.Next() {
		var e model.ClockEventWithUser
		err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Timestamp, &e.Latitude, &e.Longitude, &e.Address, &e.PONumber,
			&e.UserEmail, &e.UserFirstName, &e.UserLastName)
		if err != nil {
			return nil, fmt.Errorf("scan clock event with user: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateFields is a partial administrative update; nil fields are untouched.
type UpdateFields struct {
	Timestamp *model.Timestamp
	Latitude  *float64
	Longitude *float64
	Address   *string
	PONumber  *string
}

func (s *ClockEventStore) Update(id int64, fields UpdateFields) (*model.ClockEvent, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if fields.Timestamp != nil {
		existing.Timestamp = *fields.Timestamp
	}
	if fields.Latitude != nil {
		existing.Latitude = *fields.Latitude
	}
	if fields.Longitude != nil {
		existing.Longitude = *fields.Longitude
	}
	if fields.Address != nil {
		existing.Address = *fields.Address
	}
	if fields.PONumber != nil {
		existing.PONumber = *fields.PONumber
	}

	_, err = s.db.Exec(
		`UPDATE clock_events SET timestamp = ?, latitude = ?, longitude = ?, address = ?, po_number = ? WHERE id = ?`,
		existing.Timestamp, existing.Latitude, existing.Longitude, existing.Address, existing.PONumber, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update clock event: %w", err)
	}
	return s.GetByID(id)
}

// UpdateAddress is the targeted write used by asynchronous geocoding
// enrichment.
func (s *ClockEventStore) UpdateAddress(id int64, address string) error {
	_, err := s.db.Exec(`UPDATE clock_events SET address = ? WHERE id = ?`, address, id)
	if err != nil {
		return fmt.Errorf("update clock event address: %w", err)
	}
	return nil
}

// Delete removes an event. It reports whether a row existed.
func (s *ClockEventStore) Delete(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM clock_events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete clock event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete clock event: %w", err)
	}
	return n > 0, nil
}
