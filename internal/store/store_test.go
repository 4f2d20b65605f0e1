package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleTrip(name string, createdAt time.Time) models.Trip {
	trip := models.NewTrip(name, "ILS", createdAt)
	trip.Participants = []string{"Dan", "Sara"}
	trip.Expenses = []models.Expense{{
		ID:          name + "-e1",
		Timestamp:   createdAt.Add(time.Minute),
		Description: "Dinner",
		Total:       models.NewMoney(decimal.RequireFromString("100"), "ILS"),
		PaidBy:      "Dan",
		Splits: []models.Split{
			{Person: "Dan", Amount: models.NewMoney(decimal.RequireFromString("33.33"), "ILS")},
			{Person: "Sara", Amount: models.NewMoney(decimal.RequireFromString("66.67"), "ILS")},
		},
	}}
	trip.Settlements = []models.Settlement{{
		ID:        name + "-s1",
		Timestamp: createdAt.Add(2 * time.Minute),
		From:      "Sara",
		To:        "Dan",
		Amount:    models.NewMoney(decimal.RequireFromString("20"), "ILS"),
	}}
	return trip
}

func assertSameTrip(t *testing.T, want, got models.Trip) {
	t.Helper()
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.BaseCurrency, got.BaseCurrency)
	assert.Equal(t, want.Participants, got.Participants)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Expenses, len(want.Expenses))
	for i, e := range want.Expenses {
		g := got.Expenses[i]
		assert.Equal(t, e.ID, g.ID)
		assert.Equal(t, e.Description, g.Description)
		assert.Equal(t, e.PaidBy, g.PaidBy)
		assert.True(t, e.Timestamp.Equal(g.Timestamp))
		assert.True(t, e.Total.Amount.Equal(g.Total.Amount), "total %s vs %s", e.Total.Amount, g.Total.Amount)
		require.Len(t, g.Splits, len(e.Splits))
		for j, s := range e.Splits {
			assert.Equal(t, s.Person, g.Splits[j].Person)
			assert.True(t, s.Amount.Amount.Equal(g.Splits[j].Amount.Amount))
			assert.Equal(t, s.Amount.Currency, g.Splits[j].Amount.Currency)
		}
	}
	require.Len(t, got.Settlements, len(want.Settlements))
	for i, s := range want.Settlements {
		g := got.Settlements[i]
		assert.Equal(t, s.ID, g.ID)
		assert.Equal(t, s.From, g.From)
		assert.Equal(t, s.To, g.To)
		assert.True(t, s.Amount.Amount.Equal(g.Amount.Amount))
	}
}

// runStateStoreSuite exercises the StateStore contract against any implementation.
func runStateStoreSuite(t *testing.T, open func(t *testing.T, opts Options) StateStore) {
	ctx := context.Background()

	t.Run("Save and get", func(t *testing.T) {
		clock := newTestClock()
		s := open(t, Options{Clock: clock.Now})
		trip := sampleTrip("Beach", clock.Now())
		require.NoError(t, s.Save(ctx, trip))

		got, err := s.Get(ctx, "Beach")
		require.NoError(t, err)
		assertSameTrip(t, trip, got)
	})

	t.Run("Unknown trip", func(t *testing.T) {
		s := open(t, Options{})
		_, err := s.Get(ctx, "Nowhere")
		assert.True(t, errors.Is(err, parsererror.ErrTripNotFound))
		assert.True(t, errors.Is(s.Delete(ctx, "Nowhere"), parsererror.ErrTripNotFound))
	})

	t.Run("Save replaces snapshot", func(t *testing.T) {
		clock := newTestClock()
		s := open(t, Options{Clock: clock.Now})
		trip := sampleTrip("Ski", clock.Now())
		require.NoError(t, s.Save(ctx, trip))

		trip.Expenses = trip.Expenses[:0]
		trip.Participants = append(trip.Participants, "Avi")
		require.NoError(t, s.Save(ctx, trip))

		got, err := s.Get(ctx, "Ski")
		require.NoError(t, err)
		assert.Empty(t, got.Expenses)
		assert.Equal(t, []string{"Dan", "Sara", "Avi"}, got.Participants)
	})

	t.Run("List and load all by creation", func(t *testing.T) {
		clock := newTestClock()
		s := open(t, Options{Clock: clock.Now})
		require.NoError(t, s.Save(ctx, sampleTrip("Later", clock.Now().Add(time.Hour))))
		require.NoError(t, s.Save(ctx, sampleTrip("Earlier", clock.Now())))

		names, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Earlier", "Later"}, names)

		trips, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, trips, 2)
		assert.Equal(t, "Earlier", trips[0].Name)
	})

	t.Run("Active trip and delete", func(t *testing.T) {
		clock := newTestClock()
		s := open(t, Options{Clock: clock.Now})
		require.NoError(t, s.Save(ctx, sampleTrip("Paris", clock.Now())))

		_, ok, err := s.ActiveTrip(ctx, "chat-1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.SetActiveTrip(ctx, "chat-1", "Paris"))
		name, ok, err := s.ActiveTrip(ctx, "chat-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Paris", name)

		require.NoError(t, s.Delete(ctx, "Paris"))
		_, ok, err = s.ActiveTrip(ctx, "chat-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Pending confirmation lifecycle", func(t *testing.T) {
		clock := newTestClock()
		s := open(t, Options{Clock: clock.Now, PendingTTL: 5 * time.Minute})
		cmd := models.SettleCommand{RawText: "Dan paid Sara ₪50", From: "Dan", To: "Sara", Amount: decimal.NewFromInt(50), Currency: "ILS"}

		require.NoError(t, s.SetPending(ctx, models.PendingConfirmation{ChatID: "chat-1", Command: cmd, ConfirmationText: "Confirm?", TripName: "Paris"}))

		got, ok, err := s.Pending(ctx, "chat-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Paris", got.TripName)
		assert.Equal(t, "Confirm?", got.ConfirmationText)
		settle, isSettle := got.Command.(models.SettleCommand)
		require.True(t, isSettle)
		assert.True(t, decimal.NewFromInt(50).Equal(settle.Amount))
		assert.Equal(t, "Sara", settle.To)

		require.NoError(t, s.ClearPending(ctx, "chat-1"))
		_, ok, err = s.Pending(ctx, "chat-1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, s.ClearPending(ctx, "chat-1"))
	})

	t.Run("Pending expires", func(t *testing.T) {
		clock := newTestClock()
		s := open(t, Options{Clock: clock.Now, PendingTTL: 5 * time.Minute})
		require.NoError(t, s.SetPending(ctx, models.PendingConfirmation{ChatID: "chat-2", Command: models.UndoCommand{RawText: "undo"}}))

		clock.Advance(5 * time.Minute)
		_, ok, err := s.Pending(ctx, "chat-2")
		require.NoError(t, err)
		assert.True(t, ok, "exactly at the TTL is still valid")

		clock.Advance(time.Second)
		_, ok, err = s.Pending(ctx, "chat-2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Cleanup expired", func(t *testing.T) {
		clock := newTestClock()
		s := open(t, Options{Clock: clock.Now, PendingTTL: 5 * time.Minute})
		require.NoError(t, s.SetPending(ctx, models.PendingConfirmation{ChatID: "old-1", Command: models.UndoCommand{RawText: "undo"}}))
		require.NoError(t, s.SetPending(ctx, models.PendingConfirmation{ChatID: "old-2", Command: models.UndoCommand{RawText: "undo"}}))
		clock.Advance(10 * time.Minute)
		require.NoError(t, s.SetPending(ctx, models.PendingConfirmation{ChatID: "fresh", Command: models.UndoCommand{RawText: "undo"}}))

		removed, err := s.CleanupExpiredPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		_, ok, err := s.Pending(ctx, "fresh")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestMemoryStore(t *testing.T) {
	runStateStoreSuite(t, func(t *testing.T, opts Options) StateStore {
		return NewMemoryStore(opts)
	})
}

func TestFileStore(t *testing.T) {
	runStateStoreSuite(t, func(t *testing.T, opts Options) StateStore {
		s, err := NewFileStore(t.TempDir(), opts, logging.NewMockLogger())
		require.NoError(t, err)
		return s
	})
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("CLAWBACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CLAWBACK_TEST_POSTGRES_DSN not set")
	}
	runStateStoreSuite(t, func(t *testing.T, opts Options) StateStore {
		s, err := NewPostgresStore(context.Background(), dsn, opts, logging.NewMockLogger())
		require.NoError(t, err)
		_, err = s.db.Exec(`TRUNCATE trips, expenses, splits, settlements, active_trips, pending_confirmations`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	clock := newTestClock()
	opts := Options{Clock: clock.Now}

	s, err := NewFileStore(dir, opts, logging.NewMockLogger())
	require.NoError(t, err)
	trip := sampleTrip("Rome", clock.Now())
	require.NoError(t, s.Save(ctx, trip))
	require.NoError(t, s.SetActiveTrip(ctx, "chat-9", "Rome"))
	cmd := models.AddExpenseCommand{
		RawText:      "add wine €60 paid by Avi custom Dan:30, Sara:30",
		Description:  "wine",
		Amount:       decimal.NewFromInt(60),
		Currency:     "EUR",
		PaidBy:       "Avi",
		SplitType:    models.SplitCustom,
		CustomSplits: []models.CustomSplit{{Person: "Dan", Amount: decimal.NewFromInt(30)}, {Person: "Sara", Amount: decimal.NewFromInt(30)}},
	}
	require.NoError(t, s.SetPending(ctx, models.PendingConfirmation{ChatID: "chat-9", Command: cmd, TripName: "Rome"}))

	for _, name := range []string{TripsFile, PendingFile, ActiveFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	reopened, err := NewFileStore(dir, opts, logging.NewMockLogger())
	require.NoError(t, err)

	got, err := reopened.Get(ctx, "Rome")
	require.NoError(t, err)
	assertSameTrip(t, trip, got)

	name, ok, err := reopened.ActiveTrip(ctx, "chat-9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Rome", name)

	pending, ok, err := reopened.Pending(ctx, "chat-9")
	require.NoError(t, err)
	require.True(t, ok)
	add, isAdd := pending.Command.(models.AddExpenseCommand)
	require.True(t, isAdd)
	assert.Equal(t, models.SplitCustom, add.SplitType)
	require.Len(t, add.CustomSplits, 2)
	assert.Equal(t, "Sara", add.CustomSplits[1].Person)
	assert.True(t, decimal.NewFromInt(60).Equal(add.CustomTotal()))
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TripsFile), []byte("trips: [unclosed"), 0644))
	logger := logging.NewMockLogger()

	s, err := NewFileStore(dir, Options{}, logger)
	require.NoError(t, err)

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.True(t, logger.HasEntry("WARN", "Corrupt state file, starting empty"))
}

func TestNewFileStore_RequiresDir(t *testing.T) {
	_, err := NewFileStore("", Options{}, logging.NewMockLogger())
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewMockLogger()

	s, err := Open(ctx, Config{Driver: DriverMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Config{Driver: DriverFile, Dir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, Config{Driver: DriverPostgres}, logger)
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: "sqlite"}, logger)
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(embedMigrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	for _, f := range files {
		data, err := embedMigrations.ReadFile(f)
		require.NoError(t, err)
		assert.Contains(t, string(data), "-- +goose Up", f)
		assert.Contains(t, string(data), "-- +goose Down", f)
	}
}
