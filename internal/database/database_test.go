package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: NewGormLogger()})
	require.NoError(t, err)
	// every new connection would see its own empty in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{DBMaxOpenConns: 10, DBMaxIdleConns: 5, DBConnMaxLifetimeMinutes: 15}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", PostgresDSN(cfg))
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"sqlite always auto", config.Config{DBDriver: "sqlite", DBSchemaMode: "sql"}, false, true, false},
		{"hybrid dev", config.Config{DBDriver: "postgres", Env: "development"}, true, true, false},
		{"hybrid prod", config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql only", config.Config{DBDriver: "postgres", DBSchemaMode: "sql"}, true, false, false},
		{"auto in prod refused", config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"unknown mode", config.Config{DBDriver: "postgres", DBSchemaMode: "yolo"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	ms := GetMigrations()
	require.Len(t, ms, 2)
	assert.Equal(t, "000001_create_core_tables", ms[0].String())
	assert.Contains(t, ms[0].UpScript, "ON DELETE SET NULL")
	assert.Contains(t, ms[1].UpScript, "chk_follows_not_self")
	assert.NotNil(t, GetMigrationByVersion(2))
	assert.Nil(t, GetMigrationByVersion(99))
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_b.up.sql":   {Data: []byte("B")},
		"m/000002_b.down.sql": {Data: []byte("-B")},
		"m/000001_a.up.sql":   {Data: []byte("A")},
		"m/000001_a.down.sql": {Data: []byte("-A")},
		"m/README.md":         {Data: []byte("ignored")},
	}
	ms, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "-B", ms[1].DownScript)

	_, err = LoadMigrations(fstest.MapFS{"m/000001_a.up.sql": {Data: []byte("A")}}, "m")
	assert.Error(t, err, "missing down script")

	_, err = LoadMigrations(fstest.MapFS{
		"m/x_a.up.sql":   {Data: []byte("A")},
		"m/x_a.down.sql": {Data: []byte("A")},
	}, "m")
	assert.Error(t, err, "non-numeric version")
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

type fakeMigrationStore struct {
	applied  []int
	ran      []int
	reverted []int
	failOn   int
}

func (f *fakeMigrationStore) GetAppliedMigrations(context.Context) ([]int, error) {
	return f.applied, nil
}

func (f *fakeMigrationStore) ApplyMigration(_ context.Context, version int, _, _ string) error {
	if version == f.failOn {
		return errors.New("syntax error")
	}
	f.ran = append(f.ran, version)
	f.applied = append(f.applied, version)
	return nil
}

func (f *fakeMigrationStore) RevertMigration(_ context.Context, version int, _ string) error {
	f.reverted = append(f.reverted, version)
	return nil
}

func TestApplyPending(t *testing.T) {
	store := &fakeMigrationStore{applied: []int{1}}
	err := applyPending(context.Background(), store, []Migration{{Version: 1}, {Version: 2}, {Version: 3}})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, store.ran)

	store = &fakeMigrationStore{failOn: 2}
	err = applyPending(context.Background(), store, []Migration{{Version: 1}, {Version: 2}, {Version: 3}})
	assert.Error(t, err)
	assert.Equal(t, []int{1}, store.ran)
}

func TestPendingMigrations(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	pending := pendingMigrations([]int{2}, registered)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Version)
	assert.Equal(t, 3, pending[1].Version)
	assert.Empty(t, pendingMigrations([]int{1, 2, 3}, registered))
}

func TestRollback(t *testing.T) {
	store := &fakeMigrationStore{applied: []int{1, 2}}
	require.NoError(t, rollback(context.Background(), store, 2))
	assert.Equal(t, []int{2}, store.reverted)

	assert.Error(t, rollback(context.Background(), &fakeMigrationStore{applied: []int{1}}, 2))
	assert.Error(t, rollback(context.Background(), store, 42))
}

func TestMigrationStore_ApplyOnSQLite(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	store := NewMigrationStore(db)
	ctx := context.Background()

	require.NoError(t, store.ApplyMigration(ctx, 1, "widgets", "CREATE TABLE widgets (id INTEGER PRIMARY KEY)"))
	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	err = store.ApplyMigration(ctx, 2, "broken", "CREATE TABL nope")
	require.Error(t, err)
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied, "failed migration must not be recorded")

	require.NoError(t, store.RevertMigration(ctx, 1, "DROP TABLE widgets"))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMigrationStore_MissingTableIsEmpty(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM "schema_migrations"`).
		WillReturnError(errors.New(`ERROR: relation "schema_migrations" does not exist`))

	applied, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySchema_SQLiteAutoMigrates(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{DBDriver: "sqlite", Env: "test"}
	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Follow{}, "idx_follows_user_author"))

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
}
