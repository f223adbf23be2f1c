package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver

	"github.com/packtory/packtory/internal/versions"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultSSLMode         = "require"
	defaultConnectTimeout  = 10 * time.Second
	dialRetryElapsed       = 30 * time.Second
)

// PostgresConfig holds the connection settings for the Postgres store.
type PostgresConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

// postgresStore is the Postgres-backed Store.
type postgresStore struct {
	db *sql.DB
}

var _ Store = (*postgresStore)(nil)

// NewPostgresStore opens a connection pool and verifies connectivity with a
// bounded exponential-backoff retry, so a briefly unavailable database at
// startup does not kill the process.
func NewPostgresStore(ctx context.Context, cfg *PostgresConfig) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("database host is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("database port is required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("database user is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns == 0 {
		maxOpenConns = defaultMaxOpenConns
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = defaultMaxIdleConns
	}

	connMaxLifetime := defaultConnMaxLifetime
	if cfg.ConnMaxLifetime != "" {
		duration, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("invalid connection max lifetime: %w", err)
		}
		connMaxLifetime = duration
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode,
		int(defaultConnectTimeout.Seconds()),
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			slog.Warn("Database ping failed, retrying", "error", pingErr)
			return struct{}{}, pingErr
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(dialRetryElapsed))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Connected to database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database)

	return &postgresStore{db: db}, nil
}

// FindPackageByName returns the package with the given name, or ErrNoResult.
func (s *postgresStore) FindPackageByName(ctx context.Context, name string) (*Package, error) {
	const query = `
		SELECT id, name, vendor, repository_url, COALESCE(remote_id, ''), created_at
		FROM packages
		WHERE name = $1`

	var pkg Package
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&pkg.ID, &pkg.Name, &pkg.Vendor, &pkg.RepositoryURL, &pkg.RemoteID, &pkg.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoResult
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query package %s: %w", name, err)
	}

	const maintainerQuery = `SELECT maintainer_id FROM package_maintainers WHERE package_id = $1`
	rows, err := s.db.QueryContext(ctx, maintainerQuery, pkg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintainers of %s: %w", name, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan maintainer: %w", err)
		}
		pkg.MaintainerIDs = append(pkg.MaintainerIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read maintainers of %s: %w", name, err)
	}

	return &pkg, nil
}

// IsVendorTaken reports whether the vendor namespace belongs to other
// maintainers.
func (s *postgresStore) IsVendorTaken(ctx context.Context, vendor string, excludeMaintainer uuid.UUID) (bool, error) {
	const query = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (
				WHERE EXISTS (
					SELECT 1 FROM package_maintainers pm
					WHERE pm.package_id = p.id AND pm.maintainer_id = $2
				)
			) AS owned
		FROM packages p
		WHERE p.vendor = $1`

	var total, owned int
	if err := s.db.QueryRowContext(ctx, query, vendor, excludeMaintainer).Scan(&total, &owned); err != nil {
		return false, fmt.Errorf("failed to query vendor %s: %w", vendor, err)
	}
	return total > 0 && owned == 0, nil
}

// CreatePackage persists a newly accepted package.
func (s *postgresStore) CreatePackage(ctx context.Context, pkg *Package) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertPackage = `
		INSERT INTO packages (id, name, vendor, repository_url, remote_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`
	if _, err := tx.ExecContext(ctx, insertPackage,
		pkg.ID, pkg.Name, pkg.Vendor, pkg.RepositoryURL, pkg.RemoteID, pkg.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert package %s: %w", pkg.Name, err)
	}

	const insertMaintainer = `
		INSERT INTO package_maintainers (package_id, maintainer_id)
		VALUES ($1, $2)`
	for _, maintainer := range pkg.MaintainerIDs {
		if _, err := tx.ExecContext(ctx, insertMaintainer, pkg.ID, maintainer); err != nil {
			return fmt.Errorf("failed to insert maintainer of %s: %w", pkg.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit package %s: %w", pkg.Name, err)
	}
	return nil
}

// ListVersions returns the stored version records of a package.
func (s *postgresStore) ListVersions(ctx context.Context, packageID uuid.UUID) ([]versions.Record, error) {
	const query = `
		SELECT version, COALESCE(branch_alias, '{}'::jsonb), released_at, is_default_branch
		FROM package_versions
		WHERE package_id = $1`

	rows, err := s.db.QueryContext(ctx, query, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions of %s: %w", packageID, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []versions.Record
	for rows.Next() {
		var record versions.Record
		var aliasJSON []byte
		if err := rows.Scan(&record.Version, &aliasJSON, &record.ReleasedAt, &record.DefaultBranch); err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		if err := json.Unmarshal(aliasJSON, &record.BranchAlias); err != nil {
			return nil, fmt.Errorf("failed to decode branch aliases: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read versions of %s: %w", packageID, err)
	}

	if records == nil {
		return nil, ErrNoResult
	}
	return records, nil
}

// ReplaceVersions swaps the stored version set of a package.
func (s *postgresStore) ReplaceVersions(ctx context.Context, packageID uuid.UUID, records []versions.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM package_versions WHERE package_id = $1`, packageID); err != nil {
		return fmt.Errorf("failed to clear versions of %s: %w", packageID, err)
	}

	const insertVersion = `
		INSERT INTO package_versions (package_id, version, branch_alias, released_at, is_default_branch)
		VALUES ($1, $2, $3, $4, $5)`
	for _, record := range records {
		aliasJSON, err := json.Marshal(record.BranchAlias)
		if err != nil {
			return fmt.Errorf("failed to encode branch aliases: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertVersion,
			packageID, record.Version, aliasJSON, record.ReleasedAt, record.DefaultBranch,
		); err != nil {
			return fmt.Errorf("failed to insert version %s: %w", record.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit versions of %s: %w", packageID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *postgresStore) Close() error {
	return s.db.Close()
}
