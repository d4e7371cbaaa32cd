package lending

import (
	"database/sql"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/bookloan-backend/internal/books"
	"github.com/angelmondragon/bookloan-backend/internal/identity"
	"github.com/angelmondragon/bookloan-backend/pkg/clock"
	pkgdb "github.com/angelmondragon/bookloan-backend/pkg/db"
	"github.com/angelmondragon/bookloan-backend/pkg/db/models"
	"github.com/angelmondragon/bookloan-backend/pkg/enums"
	"github.com/angelmondragon/bookloan-backend/pkg/logger"
	"github.com/angelmondragon/bookloan-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	db      *gorm.DB
	client  *pkgdb.Client
	repo    Repository
	catalog books.Repository
	svc     Service
	query   QueryService
	metrics *metrics.LendingMetrics

	admin identity.Identity
	alice identity.Identity
	bob   identity.Identity
	book  *models.Book
}

type fixtureOption func(*ServiceParams)

func withClock(c clock.Clock) fixtureOption {
	return func(p *ServiceParams) { p.Clock = c }
}

func withTxTimeout(d time.Duration) fixtureOption {
	return func(p *ServiceParams) { p.TxTimeout = d }
}

// openTestDB opens a file-backed sqlite database. BEGIN IMMEDIATE serializes writers
// the way the book row lock does on postgres.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "lending.db") + "?_txlock=immediate&_busy_timeout=10000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}, &models.Book{}, &models.Checkout{}))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "lending-test", Output: io.Discard})
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	conn := openTestDB(t)

	f := &fixture{
		db:      conn,
		client:  pkgdb.Wrap(conn, sql.LevelDefault),
		repo:    NewRepository(conn),
		catalog: books.NewRepository(conn),
		metrics: metrics.NewLendingMetrics(prometheus.NewRegistry()),
	}
	f.admin = f.seedUser(t, "Grace", enums.RoleAdmin)
	f.alice = f.seedUser(t, "Alice", enums.RoleUser)
	f.bob = f.seedUser(t, "Bob", enums.RoleUser)
	f.book = f.seedBook(t, "Designing Data-Intensive Applications")

	params := ServiceParams{TxTimeout: 10 * time.Second, Metrics: f.metrics}
	for _, opt := range opts {
		opt(&params)
	}
	f.svc = f.newService(t, f.client, f.repo, params)

	query, err := NewQueryService(f.repo, f.catalog, testLogger())
	require.NoError(t, err)
	f.query = query
	return f
}

func (f *fixture) newService(t *testing.T, tx txRunner, repo Repository, params ServiceParams) Service {
	t.Helper()
	svc, err := NewService(tx, repo, f.catalog, NewRolePolicy(), testLogger(), params)
	require.NoError(t, err)
	return svc
}

func (f *fixture) seedUser(t *testing.T, name string, role enums.Role) identity.Identity {
	t.Helper()
	user := &models.User{
		ID:    uuid.New(),
		Name:  name,
		Email: name + "-" + uuid.NewString()[:8] + "@example.com",
		Role:  role,
	}
	require.NoError(t, f.db.Create(user).Error)
	return identity.Identity{UserID: user.ID, Role: role}
}

func (f *fixture) seedBook(t *testing.T, title string) *models.Book {
	t.Helper()
	book := &models.Book{
		ID:      uuid.New(),
		Title:   title,
		Author:  "Martin Kleppmann",
		ISBN:    "978-1449373320",
		OwnedBy: f.admin.UserID,
	}
	require.NoError(t, f.db.Create(book).Error)
	return book
}

func (f *fixture) activeCount(t *testing.T, bookID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Checkout{}).
		Where("book_id = ? AND returned_at IS NULL", bookID).
		Count(&count).Error)
	return count
}

func (f *fixture) checkout(t *testing.T, id uuid.UUID) models.Checkout {
	t.Helper()
	var c models.Checkout
	require.NoError(t, f.db.First(&c, "id = ?", id).Error)
	return c
}

func ptr[T any](v T) *T {
	return &v
}
