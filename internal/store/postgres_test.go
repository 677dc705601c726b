package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// mockRows replays one scan function per row.
type mockRows struct {
	rows   []func(dest ...any) error
	idx    int
	errVal error
}

func (r *mockRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error { return r.rows[r.idx-1](dest...) }

func (r *mockRows) Close()                                       {}
func (r *mockRows) Err() error                                   { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

func TestRepository_SaveReading(t *testing.T) {
	fakeClock(t)
	db := new(mockDBTX)
	repo := NewRepository(db)

	r := testReading(2.7)
	db.On("Exec", mock.Anything, insertReadingSQL, mock.MatchedBy(func(args []any) bool {
		return len(args) == 9 && args[0] == r.ID && args[4] == 2.7 && args[8] == testStart
	})).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.SaveReading(context.Background(), r))
	assert.NotEmpty(t, r.ID)
	db.AssertExpectations(t)
}

func TestRepository_SaveReading_Error(t *testing.T) {
	fakeClock(t)
	db := new(mockDBTX)
	repo := NewRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.SaveReading(context.Background(), testReading(1.0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert reading")
}

func TestRepository_SaveAlert_NullReadingID(t *testing.T) {
	fakeClock(t)
	db := new(mockDBTX)
	repo := NewRepository(db)

	db.On("Exec", mock.Anything, insertAlertSQL, mock.MatchedBy(func(args []any) bool {
		id, ok := args[10].(*string)
		return len(args) == 11 && ok && id == nil && args[3] == "warning" && args[4] == "storm_surge"
	})).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.SaveAlert(context.Background(), testAlert(domain.TypeStormSurge)))
	db.AssertExpectations(t)
}

func TestRepository_ListReadings(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRepository(db)

	ts := time.Date(2025, 7, 14, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	rows := &mockRows{rows: []func(dest ...any) error{
		func(dest ...any) error {
			*dest[0].(*string) = "rdg-2"
			*dest[1].(*time.Time) = ts
			*dest[2].(*float64) = 19.1
			*dest[3].(*float64) = 72.9
			*dest[4].(*float64) = 3.4
			*dest[5].(*float64) = 70
			*dest[6].(*float64) = 27
			*dest[7].(*float64) = 40
			*dest[8].(*time.Time) = ts
			return nil
		},
	}}
	db.On("Query", mock.Anything, selectReadingsSQL, []any{5}).Return(rows, nil)

	readings, err := repo.ListReadings(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "rdg-2", readings[0].ID)
	assert.InDelta(t, 3.4, readings[0].TideM, 0.0001)
	assert.Equal(t, time.UTC, readings[0].Timestamp.Location())
	assert.True(t, ts.Equal(readings[0].Timestamp))
}

func TestRepository_ListAlerts(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRepository(db)

	rows := &mockRows{rows: []func(dest ...any) error{
		func(dest ...any) error {
			*dest[0].(*string) = "alert-1"
			*dest[1].(*time.Time) = testStart
			*dest[2].(*time.Time) = testStart
			*dest[3].(*string) = "watch"
			*dest[4].(*string) = "flood_watch"
			*dest[5].(*string) = "High tide"
			*dest[6].(*string) = "उच्च ज्वार"
			*dest[7].(*float64) = 19.076
			*dest[8].(*float64) = 72.8777
			*dest[9].(*string) = "active"
			*dest[10].(*string) = "rdg-1"
			return nil
		},
	}}
	db.On("Query", mock.Anything, selectAlertsSQL, []any{"active", 50}).Return(rows, nil)

	alerts, err := repo.ListAlerts(context.Background(), domain.StatusActive, 50)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.LevelWatch, alerts[0].Level)
	assert.Equal(t, domain.TypeFloodWatch, alerts[0].Type)
	assert.Equal(t, domain.StatusActive, alerts[0].Status)
	assert.Equal(t, "rdg-1", alerts[0].ReadingID)
}

func TestRepository_ListAlerts_RowsError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRepository(db)

	db.On("Query", mock.Anything, selectAlertsSQL, mock.Anything).
		Return(&mockRows{errVal: errors.New("broken pipe")}, nil)

	_, err := repo.ListAlerts(context.Background(), domain.StatusActive, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterate alerts")
}

func TestRepository_LatestReading_Empty(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRepository(db)

	db.On("Query", mock.Anything, selectReadingsSQL, []any{1}).Return(&mockRows{}, nil)

	latest, err := repo.LatestReading(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRepository_ClearAlert(t *testing.T) {
	fakeClock(t)

	t.Run("found", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("Exec", mock.Anything, clearAlertSQL, []any{"alert-1", testStart}).
			Return(pgconn.NewCommandTag("UPDATE 1"), nil)

		require.NoError(t, NewRepository(db).ClearAlert(context.Background(), "alert-1"))
		db.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("Exec", mock.Anything, clearAlertSQL, mock.Anything).
			Return(pgconn.NewCommandTag("UPDATE 0"), nil)

		err := NewRepository(db).ClearAlert(context.Background(), "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRepository_ClearActiveAlerts(t *testing.T) {
	fakeClock(t)
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, clearActiveSQL, []any{testStart}).
		Return(pgconn.NewCommandTag("UPDATE 4"), nil)

	n, err := NewRepository(db).ClearActiveAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
