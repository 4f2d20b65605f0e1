package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore keeps state in PostgreSQL. The schema is migrated on open.
type PostgresStore struct {
	db     *sql.DB
	opts   Options
	logger logging.Logger
}

// NewPostgresStore connects, pings and migrates the database.
func NewPostgresStore(ctx context.Context, dsn string, opts Options, logger logging.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires a DSN")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("Connected to PostgreSQL state store", logging.F(logging.FieldDriver, DriverPostgres))
	return &PostgresStore{db: db, opts: opts.withDefaults(), logger: logger}, nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("error setting migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Save upserts the trip row and replaces its expenses and settlements in one transaction.
func (s *PostgresStore) Save(ctx context.Context, trip models.Trip) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `INSERT INTO trips (name, sheet_id, base_currency, participants, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			sheet_id = EXCLUDED.sheet_id,
			base_currency = EXCLUDED.base_currency,
			participants = EXCLUDED.participants`
	participants := trip.Participants
	if participants == nil {
		participants = []string{}
	}
	if _, err := tx.ExecContext(ctx, upsert, trip.Name, trip.SheetID, trip.BaseCurrency, pq.Array(participants), trip.CreatedAt); err != nil {
		return fmt.Errorf("error saving trip %q: %w", trip.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE trip_name = $1`, trip.Name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM settlements WHERE trip_name = $1`, trip.Name); err != nil {
		return err
	}

	for i, e := range trip.Expenses {
		query := `INSERT INTO expenses (id, trip_name, position, ts, description, amount, currency, paid_by, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		if _, err := tx.ExecContext(ctx, query, e.ID, trip.Name, i, e.Timestamp, e.Description, e.Total.Amount, e.Total.Currency, e.PaidBy, e.Notes); err != nil {
			return fmt.Errorf("error saving expense %s: %w", e.ID, err)
		}
		for j, split := range e.Splits {
			query = `INSERT INTO splits (expense_id, position, person, amount, currency) VALUES ($1, $2, $3, $4, $5)`
			if _, err := tx.ExecContext(ctx, query, e.ID, j, split.Person, split.Amount.Amount, split.Amount.Currency); err != nil {
				return fmt.Errorf("error saving split of %s: %w", e.ID, err)
			}
		}
	}

	for i, st := range trip.Settlements {
		query := `INSERT INTO settlements (id, trip_name, position, ts, from_person, to_person, amount, currency, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		if _, err := tx.ExecContext(ctx, query, st.ID, trip.Name, i, st.Timestamp, st.From, st.To, st.Amount.Amount, st.Amount.Currency, st.Notes); err != nil {
			return fmt.Errorf("error saving settlement %s: %w", st.ID, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) Get(ctx context.Context, name string) (models.Trip, error) {
	query := `SELECT name, sheet_id, base_currency, participants, created_at FROM trips WHERE name = $1`

	var trip models.Trip
	var participants []string
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&trip.Name,
		&trip.SheetID,
		&trip.BaseCurrency,
		pq.Array(&participants),
		&trip.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Trip{}, parsererror.ErrTripNotFound
		}
		return models.Trip{}, err
	}
	trip.Participants = append([]string{}, participants...)

	if trip.Expenses, err = s.expenses(ctx, name); err != nil {
		return models.Trip{}, err
	}
	if trip.Settlements, err = s.settlements(ctx, name); err != nil {
		return models.Trip{}, err
	}
	return trip, nil
}

func (s *PostgresStore) expenses(ctx context.Context, tripName string) ([]models.Expense, error) {
	query := `SELECT id, ts, description, amount, currency, paid_by, notes
		FROM expenses WHERE trip_name = $1 ORDER BY position`
	rows, err := s.db.QueryContext(ctx, query, tripName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []models.Expense{}
	index := map[string]int{}
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Description, &e.Total.Amount, &e.Total.Currency, &e.PaidBy, &e.Notes); err != nil {
			return nil, err
		}
		e.Splits = []models.Split{}
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	splitQuery := `SELECT s.expense_id, s.person, s.amount, s.currency
		FROM splits s JOIN expenses e ON s.expense_id = e.id
		WHERE e.trip_name = $1 ORDER BY e.position, s.position`
	splitRows, err := s.db.QueryContext(ctx, splitQuery, tripName)
	if err != nil {
		return nil, err
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var expenseID string
		var split models.Split
		if err := splitRows.Scan(&expenseID, &split.Person, &split.Amount.Amount, &split.Amount.Currency); err != nil {
			return nil, err
		}
		if i, ok := index[expenseID]; ok {
			expenses[i].Splits = append(expenses[i].Splits, split)
		}
	}
	return expenses, splitRows.Err()
}

func (s *PostgresStore) settlements(ctx context.Context, tripName string) ([]models.Settlement, error) {
	query := `SELECT id, ts, from_person, to_person, amount, currency, notes
		FROM settlements WHERE trip_name = $1 ORDER BY position`
	rows, err := s.db.QueryContext(ctx, query, tripName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settlements := []models.Settlement{}
	for rows.Next() {
		var st models.Settlement
		if err := rows.Scan(&st.ID, &st.Timestamp, &st.From, &st.To, &st.Amount.Amount, &st.Amount.Currency, &st.Notes); err != nil {
			return nil, err
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM trips ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]models.Trip, error) {
	tripNames, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	trips := make([]models.Trip, 0, len(tripNames))
	for _, name := range tripNames {
		trip, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

// Delete removes the trip; expenses, settlements and active mappings cascade.
func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trips WHERE name = $1`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return parsererror.ErrTripNotFound
	}
	return nil
}

func (s *PostgresStore) ActiveTrip(ctx context.Context, chatID string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT trip_name FROM active_trips WHERE chat_id = $1`, chatID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return name, true, nil
}

func (s *PostgresStore) SetActiveTrip(ctx context.Context, chatID, name string) error {
	query := `INSERT INTO active_trips (chat_id, trip_name) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE SET trip_name = EXCLUDED.trip_name`
	_, err := s.db.ExecContext(ctx, query, chatID, name)
	return err
}

func (s *PostgresStore) SetPending(ctx context.Context, pending models.PendingConfirmation) error {
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = s.opts.Clock()
	}
	command, err := json.Marshal(models.EncodeCommand(pending.Command))
	if err != nil {
		return fmt.Errorf("error encoding pending command: %w", err)
	}
	query := `INSERT INTO pending_confirmations (chat_id, command, confirmation_text, created_at, trip_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE SET
			command = EXCLUDED.command,
			confirmation_text = EXCLUDED.confirmation_text,
			created_at = EXCLUDED.created_at,
			trip_name = EXCLUDED.trip_name`
	_, err = s.db.ExecContext(ctx, query, pending.ChatID, command, pending.ConfirmationText, pending.CreatedAt, pending.TripName)
	return err
}

func (s *PostgresStore) Pending(ctx context.Context, chatID string) (models.PendingConfirmation, bool, error) {
	query := `SELECT chat_id, command, confirmation_text, created_at, trip_name
		FROM pending_confirmations WHERE chat_id = $1`

	var rec models.PendingRecord
	var command []byte
	err := s.db.QueryRowContext(ctx, query, chatID).Scan(&rec.ChatID, &command, &rec.ConfirmationText, &rec.CreatedAt, &rec.TripName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PendingConfirmation{}, false, nil
		}
		return models.PendingConfirmation{}, false, err
	}
	if err := json.Unmarshal(command, &rec.Command); err != nil {
		return models.PendingConfirmation{}, false, fmt.Errorf("error decoding pending command: %w", err)
	}

	pending, err := rec.Pending()
	if err != nil {
		return models.PendingConfirmation{}, false, err
	}
	if pending.Expired(s.opts.Clock(), s.opts.PendingTTL) {
		return models.PendingConfirmation{}, false, s.ClearPending(ctx, chatID)
	}
	return pending, true, nil
}

func (s *PostgresStore) ClearPending(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_confirmations WHERE chat_id = $1`, chatID)
	return err
}

func (s *PostgresStore) CleanupExpiredPending(ctx context.Context) (int, error) {
	cutoff := s.opts.Clock().Add(-s.opts.PendingTTL)
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_confirmations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Removed expired pending confirmations", logging.F(logging.FieldCount, n))
	}
	return int(n), nil
}
