package repository_test

import (
	"context"
	"errors"
	"testing"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/internal/testutil"
)

func mockDriver(t *testing.T, name string) (*entsql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return entsql.OpenDB(name, db), mock
}

func TestPostgresFilter(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.Postgres)
	mock.ExpectQuery(`SELECT * FROM "users" WHERE "users"."username" = $1`).
		WithArgs("luke").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(int64(1), "luke", "secret"))

	records, err := bind(t, testutil.Registry(t), drv, "User").
		SetFilters(map[string]any{"username": "=luke"}).
		All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{"id": int64(1), "username": "luke"}, records[0].Fields)
}

func TestPostgresCreateReturning(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.Postgres)
	mock.ExpectQuery(`INSERT INTO "users" ("username") VALUES ($1) RETURNING "id"`).
		WithArgs("han").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT * FROM "users" WHERE "users"."id" = $1 LIMIT 1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(int64(7), "han"))

	rec, err := bind(t, testutil.Registry(t), drv, "User").
		SetInput(map[string]any{"username": "han"}).
		Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID())
}

func TestPostgresDelete(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.Postgres)
	mock.ExpectQuery(`SELECT * FROM "users" WHERE "users"."id" = $1 LIMIT 1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(int64(3), "han"))
	mock.ExpectExec(`DELETE FROM "users" WHERE "id" = $1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := bind(t, testutil.Registry(t), drv, "User").Delete(context.Background(), 3)
	require.NoError(t, err)
}

func TestMySQLCreate(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.MySQL)
	mock.ExpectExec("INSERT INTO `users` (`hands`, `username`) VALUES (?, ?)").
		WithArgs(int64(2), "leia").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery("SELECT * FROM `users` WHERE `users`.`id` = ? LIMIT 1").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "hands"}).AddRow(int64(9), []byte("leia"), []byte("2")))

	rec, err := bind(t, testutil.Registry(t), drv, "User").
		SetInput(map[string]any{"username": "leia", "hands": float64(2)}).
		Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), rec.ID())
	assert.Equal(t, "leia", rec.Fields["username"])
	assert.Equal(t, int64(2), rec.Fields["hands"])
}

func TestMySQLRandom(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.MySQL)
	mock.ExpectQuery("SELECT * FROM `users` ORDER BY RAND() LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := bind(t, testutil.Registry(t), drv, "User").Random(context.Background())
	assert.True(t, magicbox.IsNotFound(err))
}

func TestDriverErrorsPropagate(t *testing.T) {
	t.Parallel()
	errBoom := errors.New("boom")
	drv, mock := mockDriver(t, dialect.Postgres)
	mock.ExpectQuery(`SELECT * FROM "users"`).WillReturnError(errBoom)

	_, err := bind(t, testutil.Registry(t), drv, "User").All(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, magicbox.IsQueryError(err))
}
