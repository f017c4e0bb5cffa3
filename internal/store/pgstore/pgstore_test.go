package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	reminder "github.com/ace-232/day-planner-app"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock DBTX ---

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

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

func existsRow(v bool) *mockRow {
	return &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*bool) = v
		return nil
	}}
}

// --- TaskStore ---

func TestTaskStore_FindByID_Success(t *testing.T) {
	db := new(mockDBTX)
	st := NewTaskStore(db)
	at := time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "task_1"
		*dest[1].(*string) = "user_1"
		*dest[2].(*string) = "Dentist"
		*dest[3].(*string) = ""
		*dest[4].(*time.Time) = at
		*dest[5].(*string) = "in-app"
		*dest[6].(*string) = "pending"
		*dest[7].(*int) = 2
		*dest[8].(*time.Time) = at.Add(-time.Hour)
		return nil
	}}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"task_1"}).Return(row)

	task, err := st.FindByID(context.Background(), "task_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1", task.UserID)
	assert.Equal(t, reminder.ChannelInApp, task.Channel)
	assert.Equal(t, reminder.StatusPending, task.Status)
	assert.Equal(t, 2, task.Retries)
	assert.Equal(t, at, task.ScheduledAt)
	db.AssertExpectations(t)
}

func TestTaskStore_FindByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := NewTaskStore(db).FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, reminder.ErrTaskNotFound)
}

func TestTaskStore_FindByID_DBError(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(&mockRow{scanErr: errors.New("connection reset")})

	_, err := NewTaskStore(db).FindByID(context.Background(), "task_1")
	require.Error(t, err)
	require.NotErrorIs(t, err, reminder.ErrTaskNotFound, "driver errors are not 'not found'")
}

func TestTaskStore_Transition(t *testing.T) {
	cases := []struct {
		name     string
		affected string
		exists   bool
		want     error
	}{
		{"updated", "UPDATE 1", true, nil},
		{"conflict", "UPDATE 0", true, reminder.ErrStatusConflict},
		{"missing", "UPDATE 0", false, reminder.ErrTaskNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := new(mockDBTX)
			db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{"task_1", "pending", "sent"}).
				Return(pgconn.NewCommandTag(tc.affected), nil)
			db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"task_1"}).
				Return(existsRow(tc.exists)).Maybe()

			err := NewTaskStore(db).Transition(context.Background(), "task_1", reminder.StatusPending, reminder.StatusSent)
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
			db.AssertExpectations(t)
		})
	}
}

func TestTaskStore_IncrementRetries(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"task_1", "pending"}).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*int) = 3
			return nil
		}})

	n, err := NewTaskStore(db).IncrementRetries(context.Background(), "task_1")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestTaskStore_IncrementRetries_NotPending(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"task_1", "pending"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"task_1"}).
		Return(existsRow(true))

	_, err := NewTaskStore(db).IncrementRetries(context.Background(), "task_1")
	require.ErrorIs(t, err, reminder.ErrStatusConflict)
}

func TestTaskStore_Save_Error(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := NewTaskStore(db).Save(context.Background(), reminder.NewTask("u", "t", "", time.Now(), reminder.ChannelEmail))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// --- UserStore ---

func TestUserStore_Create_Duplicate(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"})

	err := NewUserStore(db).Create(context.Background(), reminder.NewUser("Ann", "ann@example.com", "h"))
	require.ErrorIs(t, err, reminder.ErrUserExists)
}

func TestUserStore_FindByEmail_LowerCases(t *testing.T) {
	db := new(mockDBTX)
	now := time.Now().UTC()
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"ann@example.com"}).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*string) = "user_1"
			*dest[1].(*string) = "Ann"
			*dest[2].(*string) = "Ann@Example.com"
			*dest[3].(*string) = "$2a$10$hash"
			*dest[4].(*time.Time) = now
			return nil
		}})

	u, err := NewUserStore(db).FindByEmail(context.Background(), "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user_1", u.ID)
	assert.Equal(t, "$2a$10$hash", u.PasswordHash)
	db.AssertExpectations(t)
}

func TestUserStore_FindByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := NewUserStore(db).FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, reminder.ErrUserNotFound)
}

func TestEnsureSchema_StopsOnError(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("permission denied")).Once()

	err := EnsureSchema(context.Background(), db)
	require.Error(t, err)
	db.AssertNumberOfCalls(t, "Exec", 1)
}
