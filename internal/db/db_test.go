package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/fdnorm/internal/schema"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func ordersSchema() *schema.Schema {
	return &schema.Schema{Tables: []schema.Table{{
		Name:          "orders",
		Columns:       []schema.Column{{Name: "order_id"}, {Name: "customer_id"}},
		PrimaryKey:    []string{"order_id"},
		CandidateKeys: [][]string{{"order_id"}},
		Rows:          [][]string{{"1", "7"}, {"2", "8"}},
	}}}
}

func TestDialect(t *testing.T) {
	tests := []struct {
		dialect Dialect
		ident   string
		quoted  string
		create  string
	}{
		{SQLite, `we"ird`, `"we""ird"`, `CREATE TABLE t ("order_id" TEXT, "customer_id" TEXT, PRIMARY KEY ("order_id"))`},
		{MySQL, "we`ird", "`we``ird`", "CREATE TABLE t (`order_id` VARCHAR(255), `customer_id` TEXT, PRIMARY KEY (`order_id`))"},
		{Postgres, `we"ird`, `"we""ird"`, `CREATE TABLE t ("order_id" text, "customer_id" text, PRIMARY KEY ("order_id"))`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name, func(t *testing.T) {
			assert.Equal(t, tt.quoted, tt.dialect.Quote(tt.ident))
			assert.Equal(t, tt.create, tt.dialect.CreateTable("t", &ordersSchema().Tables[0], true))
		})
	}
	assert.Equal(t, "?, ?, ?", SQLite.Placeholders(3))
	assert.Equal(t, `CREATE TABLE t ("order_id" TEXT, "customer_id" TEXT)`, SQLite.CreateTable("t", &ordersSchema().Tables[0], false))
	assert.Equal(t, "CREATE TABLE t (`order_id` TEXT, `customer_id` TEXT)", MySQL.CreateTable("t", &ordersSchema().Tables[0], false))
	assert.Equal(t, "`shop`.`orders`", MySQL.Qualify("shop", "orders"))
	assert.Equal(t, `"orders"`, SQLite.Qualify("", "orders"))
}

func TestSQLWriterWriteSchema(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "orders"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE "orders" ("order_id" TEXT, "customer_id" TEXT, PRIMARY KEY ("order_id"))`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(`INSERT INTO "orders" ("order_id", "customer_id") VALUES (?, ?)`)
	prep.ExpectExec().WithArgs("1", "7").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("2", "8").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`DROP TABLE IF EXISTS "_keymap"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE "_keymap" ("table_name" TEXT, "keymap" TEXT)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "_keymap" ("table_name", "keymap") VALUES (?, ?)`).
		WithArgs("orders", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := NewSQLWriter(db, SQLite, "", WriteOptions{PrimaryKeys: true})
	require.NoError(t, w.WriteSchema(context.Background(), ordersSchema()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWriterRollsBack(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS `orders`").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	w := NewSQLWriter(db, MySQL, "", WriteOptions{KeyMapTable: "keys"})
	err := w.WriteSchema(context.Background(), ordersSchema())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "orders")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSourceLoadTable(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT * FROM "orders" LIMIT 10`).WillReturnRows(
		sqlmock.NewRows([]string{"Order ID", "name"}).
			AddRow(int64(1), "ann").
			AddRow(int64(2), nil))

	src := NewSQLSource(db, SQLite, "")
	tbl, err := src.LoadTable(context.Background(), "orders", 10)
	require.NoError(t, err)
	assert.Equal(t, "orders", tbl.Name)
	assert.Equal(t, []string{"order_id", "name"}, tbl.ColumnNames())
	assert.Equal(t, [][]string{{"1", "ann"}, {"2", ""}}, tbl.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSourceLoadTableOtherDatabase(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT * FROM `other_db`.`orders`").WillReturnRows(
		sqlmock.NewRows([]string{"order_id"}).AddRow("1"))

	tbl, err := NewSQLSource(db, MySQL, "other_db").LoadTable(context.Background(), "orders", 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}}, tbl.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWriterOtherDatabase(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS `other_db`.`orders`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE `other_db`.`orders` (`order_id` TEXT, `customer_id` TEXT)").
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare("INSERT INTO `other_db`.`orders` (`order_id`, `customer_id`) VALUES (?, ?)")
	prep.ExpectExec().WithArgs("1", "7").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("2", "8").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("DROP TABLE IF EXISTS `other_db`.`_keymap`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE `other_db`.`_keymap` (`table_name` TEXT, `keymap` TEXT)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `other_db`.`_keymap` (`table_name`, `keymap`) VALUES (?, ?)").
		WithArgs("orders", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := NewSQLWriter(db, MySQL, "other_db", WriteOptions{})
	require.NoError(t, w.WriteSchema(context.Background(), ordersSchema()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSourceTableNames(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`).WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("customers").AddRow("orders"))

		names, err := NewSQLSource(db, SQLite, "").TableNames(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"customers", "orders"}, names)
	})

	t.Run("mysql", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`).WithArgs("shop").WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders"))

		names, err := NewSQLSource(db, MySQL, "shop").TableNames(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"orders"}, names)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestArtifactStore(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(createArtifacts).WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewArtifactStore(ctx, db)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	mock.ExpectExec(`INSERT OR REPLACE INTO fdnorm_artifacts (run_id, name, body, created_at) VALUES (?, ?, ?, ?)`).
		WithArgs("run-1", "minimal_cover", `{"fds":2}`, "2024-01-02T03:04:05Z").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, store.Put(ctx, "run-1", "minimal_cover", map[string]int{"fds": 2}))

	mock.ExpectQuery(`SELECT body FROM fdnorm_artifacts WHERE run_id = ? AND name = ?`).
		WithArgs("run-1", "minimal_cover").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(`{"fds":2}`))
	body, err := store.Get(ctx, "run-1", "minimal_cover")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fds": 2}`, string(body))

	mock.ExpectQuery(`SELECT body FROM fdnorm_artifacts WHERE run_id = ? AND name = ?`).
		WithArgs("run-2", "keymap").
		WillReturnError(sql.ErrNoRows)
	_, err = store.Get(ctx, "run-2", "keymap")
	assert.True(t, errors.Is(err, ErrArtifactNotFound))

	mock.ExpectQuery(`SELECT run_id FROM fdnorm_artifacts GROUP BY run_id ORDER BY MAX(created_at) DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"run_id"}).AddRow("run-1"))
	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, runs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url      string
		wantType string
		wantConn string
		wantErr  bool
	}{
		{"postgres://u:p@localhost/db", "postgres", "postgres://u:p@localhost/db", false},
		{"postgresql://u:p@localhost/db", "postgres", "postgresql://u:p@localhost/db", false},
		{"mysql://u:p@tcp(localhost:3306)/db", "mysql", "u:p@tcp(localhost:3306)/db", false},
		{"sqlite://data/test.db", "sqlite", "data/test.db", false},
		{"oracle://x", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			dbType, conn, err := ParseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, dbType)
			assert.Equal(t, tt.wantConn, conn)
		})
	}
}

func TestParseDatabaseName(t *testing.T) {
	name, err := ParseDatabaseName("u:p@tcp(localhost:3306)/shop?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "shop", name)

	_, err = ParseDatabaseName("u:p@tcp(localhost:3306)/")
	assert.Error(t, err)
}
