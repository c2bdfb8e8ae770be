package postgresql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPgUserRepository(db)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "hash", domain.RoleOperator).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(5, now, now))

	user, err := repo.Create(context.Background(), &domain.User{Username: "alice", Password: "hash", Role: domain.RoleOperator})
	require.NoError(t, err)
	assert.Equal(t, 5, user.ID)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})
	_, err = repo.Create(context.Background(), &domain.User{Username: "alice"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByUsername(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPgUserRepository(db)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, username, password_hash, role`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "created_at", "updated_at"}).
			AddRow(5, "alice", "hash", "admin", now, now))

	user, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)

	mock.ExpectQuery(`SELECT id, username, password_hash, role`).WithArgs(9).WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
