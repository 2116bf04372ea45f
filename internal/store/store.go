package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/store/migrations"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var articleColumns = []string{
	"id", "url", "title", "original_content", "published_date",
	"status", "research_state", "research_candidates",
	"user_tone", "user_keywords", "custom_prompt", "target_language", "readability_level",
	"ai_summary", "ai_tags", "updated_content", "citations", "seo_score", "seo_analysis",
	"version_history", "created_at", "updated_at",
}

// Store persists articles as documents in a SQL table, indexed by url and status.
type Store struct {
	db     *sqlx.DB
	driver string
	sb     sq.StatementBuilderType
	now    func() time.Time
}

// Open connects to the database and applies pending migrations.
func Open(driver, dsn string) (*Store, error) {
	s, err := Connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Connect opens the database, creating the sqlite directory if needed, without touching the schema.
func Connect(driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver == DriverSQLite && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite serializes writers; one connection also keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}

	s, err := New(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection without running migrations.
func New(db *sqlx.DB, driver string) (*Store, error) {
	s := &Store{db: db, driver: driver, now: time.Now}
	switch driver {
	case DriverSQLite:
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	case DriverPostgres:
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return s, nil
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate() error {
	return migrations.Run(s.db.DB, s.driver)
}

// MigrateDown rolls back the latest schema migration.
func (s *Store) MigrateDown() error {
	return migrations.Down(s.db.DB, s.driver)
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion() (int64, error) {
	return migrations.Version(s.db.DB, s.driver)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the article with the given id or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*core.Article, error) {
	return s.getOne(ctx, sq.Eq{"id": id}, "article "+id)
}

// FindByURL returns the article stored under url or core.ErrNotFound.
func (s *Store) FindByURL(ctx context.Context, url string) (*core.Article, error) {
	return s.getOne(ctx, sq.Eq{"url": url}, "article with url "+url)
}

func (s *Store) getOne(ctx context.Context, where sq.Eq, what string) (*core.Article, error) {
	query, args, err := s.sb.Select(articleColumns...).From("articles").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row articleRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load %s: %w", what, err)
	}
	return row.toArticle()
}

// List returns all articles, most recently created first.
func (s *Store) List(ctx context.Context) ([]*core.Article, error) {
	return s.list(ctx, s.sb.Select(articleColumns...).From("articles"))
}

// ListByStatus returns articles with the given status, most recently created first.
func (s *Store) ListByStatus(ctx context.Context, status core.Status) ([]*core.Article, error) {
	return s.list(ctx, s.sb.Select(articleColumns...).From("articles").Where(sq.Eq{"status": string(status)}))
}

func (s *Store) list(ctx context.Context, qb sq.SelectBuilder) ([]*core.Article, error) {
	query, args, err := qb.OrderBy("created_at DESC", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []articleRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	articles := make([]*core.Article, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toArticle()
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// Count returns the number of stored articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := s.sb.Select("COUNT(*)").From("articles").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int
	if err := sqlx.GetContext(ctx, s.db, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// Insert stores a new article. When the url already exists nothing is written and
// the existing id is returned with created=false.
func (s *Store) Insert(ctx context.Context, article *core.Article) (string, bool, error) {
	if article.URL == "" {
		return "", false, fmt.Errorf("article url is required: %w", core.ErrInvalidInput)
	}

	a := article.Clone()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = core.StatusPending
	}
	a.ResearchState = a.ResearchState.Normalize()
	now := s.now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	row, err := fromArticle(a)
	if err != nil {
		return "", false, err
	}

	query, args, err := s.sb.Insert("articles").SetMap(row.values()).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			existing, findErr := s.FindByURL(ctx, a.URL)
			if findErr != nil {
				return "", false, fmt.Errorf("duplicate url %s could not be resolved: %w", a.URL, findErr)
			}
			return existing.ID, false, nil
		}
		return "", false, fmt.Errorf("failed to insert article %s: %w", a.URL, err)
	}

	article.ID = a.ID
	article.Status = a.Status
	article.ResearchState = a.ResearchState
	article.CreatedAt = a.CreatedAt
	article.UpdatedAt = a.UpdatedAt
	return a.ID, true, nil
}

// Patch applies the non-nil fields of p to the article in a single write.
func (s *Store) Patch(ctx context.Context, id string, p Patch) error {
	set, err := p.columns()
	if err != nil {
		return err
	}
	set["updated_at"] = s.now().UTC().UnixNano()

	query, args, err := s.sb.Update("articles").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update article %s: %w", id, err)
	}
	return requireRow(res, id)
}

// Delete removes an article.
func (s *Store) Delete(ctx context.Context, id string) error {
	query, args, err := s.sb.Delete("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete article %s: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("article %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
