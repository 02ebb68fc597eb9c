package birthday

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const tableName = "birthday_players"

// recordColumns is the shared select list; scanRecord depends on this order.
const recordColumns = "uuid, player_name, birth_year, birthday_month, birthday_day, " +
	"last_claim_year, last_claim_date, modify_count_this_year, last_modify_year, " +
	"entitlement_expiry, created_at, updated_at"

// sqlStore is the shared SQL-backed store. One implementation serves all
// three dialects; only connection setup, schema DDL, and upsert syntax
// switch on the backend. The embedded sqlite backend runs on a single
// connection and serializes writes through writeMu.
type sqlStore struct {
	db         *sql.DB
	backend    Backend
	driverName string
	opTimeout  time.Duration

	serializeWrites bool
	writeMu         sync.Mutex

	mu          sync.Mutex
	initialized bool
	closed      bool
}

func newSQLStore(cfg StoreConfig) (*sqlStore, error) {
	cfg = cfg.withDefaults()
	driverName, dsn := cfg.dsn()
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, storeErr(cfg.Backend, "open", err)
	}
	s := &sqlStore{
		db:         db,
		backend:    cfg.Backend,
		driverName: driverName,
		opTimeout:  cfg.OpTimeout,
	}
	if cfg.Backend == BackendSQLite {
		// sqlite supports a single concurrent writer; one connection keeps
		// the serialization inside this process instead of at the file lock.
		db.SetMaxOpenConns(1)
		s.serializeWrites = true
	} else {
		db.SetMaxOpenConns(cfg.PoolMaxOpen)
		db.SetMaxIdleConns(cfg.PoolMaxIdle)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return s, nil
}

func (s *sqlStore) Backend() Backend { return s.backend }

// Initialize pings the backend and ensures the table, the legacy birth_year
// column, and the (month, day) index exist. Safe to call more than once.
func (s *sqlStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return storeErr(s.backend, "initialize", ErrStoreClosed)
	}
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return storeErr(s.backend, "initialize", err)
	}
	if _, err := s.db.ExecContext(ctx, s.createTableSQL()); err != nil {
		return storeErr(s.backend, "initialize", err)
	}
	if err := s.addBirthYearColumn(ctx); err != nil {
		return storeErr(s.backend, "initialize", err)
	}
	if err := s.ensureIndex(ctx); err != nil {
		return storeErr(s.backend, "initialize", err)
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return nil
}

func (s *sqlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeErr(s.backend, "close", ErrStoreClosed)
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return storeErr(s.backend, "close", err)
	}
	return nil
}

func (s *sqlStore) Upsert(ctx context.Context, rec *Record) error {
	if err := s.checkOpen("upsert"); err != nil {
		return err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var birthYear, birthMonth, birthDay any
	if rec.BirthDate != nil {
		birthYear = rec.BirthDate.Year()
		birthMonth = int(rec.BirthDate.Month())
		birthDay = rec.BirthDate.Day()
	}
	args := []any{
		rec.ID.String(),
		rec.DisplayName,
		birthYear, birthMonth, birthDay,
		rec.LastClaimYear,
		dateArg(rec.LastClaimDate),
		rec.ModifyCountThisYear,
		rec.LastModifyYear,
		dateArg(rec.EntitlementExpiry),
		dateArg(&rec.CreatedAt),
		dateArg(&rec.UpdatedAt),
	}

	if s.serializeWrites {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}
	_, err := s.db.ExecContext(ctx, s.upsertSQL(), args...)
	return storeErr(s.backend, "upsert", err)
}

func (s *sqlStore) Fetch(ctx context.Context, id uuid.UUID) (*Record, error) {
	if err := s.checkOpen("fetch"); err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE uuid = %s", recordColumns, tableName, s.ph(1))
	row := s.db.QueryRowContext(ctx, query, id.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(s.backend, "fetch", err)
	}
	return rec, nil
}

func (s *sqlStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.checkOpen("delete"); err != nil {
		return err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if s.serializeWrites {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE uuid = %s", tableName, s.ph(1))
	_, err := s.db.ExecContext(ctx, query, id.String())
	return storeErr(s.backend, "delete", err)
}

func (s *sqlStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := s.checkOpen("exists"); err != nil {
		return false, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT 1 FROM %s WHERE uuid = %s", tableName, s.ph(1))
	var one int
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeErr(s.backend, "exists", err)
	}
	return true, nil
}

func (s *sqlStore) FindByMonthDay(ctx context.Context, month time.Month, day int) ([]*Record, error) {
	if err := s.checkOpen("find_by_month_day"); err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE birthday_month = %s AND birthday_day = %s",
		recordColumns, tableName, s.ph(1), s.ph(2))
	return s.queryRecords(ctx, "find_by_month_day", query, int(month), day)
}

func (s *sqlStore) FindUpcoming(ctx context.Context, withinDays int, now time.Time) ([]*Record, error) {
	all, err := s.FindAllWithBirthday(ctx)
	if err != nil {
		return nil, err
	}
	return filterUpcoming(all, withinDays, now), nil
}

func (s *sqlStore) FindAllWithBirthday(ctx context.Context) ([]*Record, error) {
	if err := s.checkOpen("find_all_with_birthday"); err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE birthday_month IS NOT NULL AND birthday_day IS NOT NULL",
		recordColumns, tableName)
	return s.queryRecords(ctx, "find_all_with_birthday", query)
}

func (s *sqlStore) queryRecords(ctx context.Context, op, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(s.backend, op, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storeErr(s.backend, op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(s.backend, op, err)
	}
	return records, nil
}

func (s *sqlStore) checkOpen(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeErr(s.backend, op, ErrStoreClosed)
	}
	return nil
}

func (s *sqlStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *sqlStore) createTableSQL() string {
	switch s.driverName {
	case "mysql":
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			uuid VARCHAR(36) PRIMARY KEY,
			player_name VARCHAR(64),
			birth_year INT,
			birthday_month TINYINT,
			birthday_day TINYINT,
			last_claim_year SMALLINT DEFAULT 0,
			last_claim_date DATE,
			modify_count_this_year TINYINT DEFAULT 0,
			last_modify_year SMALLINT DEFAULT 0,
			entitlement_expiry DATE,
			created_at DATE,
			updated_at DATE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`, tableName)
	case "postgres", "pgx":
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			uuid VARCHAR(36) PRIMARY KEY,
			player_name VARCHAR(64),
			birth_year INT,
			birthday_month SMALLINT,
			birthday_day SMALLINT,
			last_claim_year INT DEFAULT 0,
			last_claim_date DATE,
			modify_count_this_year INT DEFAULT 0,
			last_modify_year INT DEFAULT 0,
			entitlement_expiry DATE,
			created_at DATE,
			updated_at DATE
		)`, tableName)
	default: // sqlite
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			uuid TEXT PRIMARY KEY,
			player_name TEXT,
			birth_year INTEGER,
			birthday_month INTEGER,
			birthday_day INTEGER,
			last_claim_year INTEGER DEFAULT 0,
			last_claim_date TEXT,
			modify_count_this_year INTEGER DEFAULT 0,
			last_modify_year INTEGER DEFAULT 0,
			entitlement_expiry TEXT,
			created_at TEXT,
			updated_at TEXT
		)`, tableName)
	}
}

// addBirthYearColumn upgrades installations created before the birth year
// was stored. The column-exists error is the expected steady state.
func (s *sqlStore) addBirthYearColumn(ctx context.Context) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN birth_year ", tableName)
	if s.driverName == "mysql" {
		stmt += "INT"
	} else {
		stmt += "INTEGER"
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil && !isDuplicateColumnErr(err, s.driverName) {
		return err
	}
	return nil
}

func (s *sqlStore) ensureIndex(ctx context.Context) error {
	if s.driverName == "mysql" {
		// MySQL has no CREATE INDEX IF NOT EXISTS.
		var count int
		check := `SELECT COUNT(1) FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = ? AND index_name = 'idx_birthday'`
		if err := s.db.QueryRowContext(ctx, check, tableName).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		_, err := s.db.ExecContext(ctx,
			fmt.Sprintf("CREATE INDEX idx_birthday ON %s (birthday_month, birthday_day)", tableName))
		return err
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_birthday ON %s (birthday_month, birthday_day)", tableName))
	return err
}

func (s *sqlStore) upsertSQL() string {
	cols := "uuid, player_name, birth_year, birthday_month, birthday_day, " +
		"last_claim_year, last_claim_date, modify_count_this_year, last_modify_year, " +
		"entitlement_expiry, created_at, updated_at"
	placeholders := make([]string, 12)
	for i := range placeholders {
		placeholders[i] = s.ph(i + 1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, cols, strings.Join(placeholders, ", "))

	updatable := []string{
		"player_name", "birth_year", "birthday_month", "birthday_day",
		"last_claim_year", "last_claim_date", "modify_count_this_year",
		"last_modify_year", "entitlement_expiry", "created_at", "updated_at",
	}
	assignments := make([]string, 0, len(updatable))
	if s.driverName == "mysql" {
		// Row alias instead of VALUES(col); the latter is deprecated since
		// MySQL 8.0.20.
		for _, col := range updatable {
			assignments = append(assignments, fmt.Sprintf("%s = new.%s", col, col))
		}
		return insert + " AS new ON DUPLICATE KEY UPDATE " + strings.Join(assignments, ", ")
	}
	for _, col := range updatable {
		assignments = append(assignments, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	return insert + " ON CONFLICT(uuid) DO UPDATE SET " + strings.Join(assignments, ", ")
}

func (s *sqlStore) ph(i int) string {
	if s.driverName == "postgres" || s.driverName == "pgx" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func isDuplicateColumnErr(err error, driverName string) bool {
	msg := strings.ToLower(err.Error())
	switch driverName {
	case "mysql":
		return strings.Contains(msg, "duplicate column")
	case "postgres", "pgx":
		return strings.Contains(msg, "already exists")
	default:
		return strings.Contains(msg, "duplicate column")
	}
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		idStr       string
		name        sql.NullString
		birthYear   sql.NullInt64
		birthMonth  sql.NullInt64
		birthDay    sql.NullInt64
		claimYear   sql.NullInt64
		claimDate   nullDate
		modifyCount sql.NullInt64
		modifyYear  sql.NullInt64
		entitlement nullDate
		createdAt   nullDate
		updatedAt   nullDate
	)
	err := row.Scan(&idStr, &name, &birthYear, &birthMonth, &birthDay,
		&claimYear, &claimDate, &modifyCount, &modifyYear,
		&entitlement, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse record id %q: %w", idStr, err)
	}
	rec := &Record{
		ID:                  id,
		DisplayName:         name.String,
		LastClaimYear:       int(claimYear.Int64),
		LastClaimDate:       claimDate.date,
		ModifyCountThisYear: int(modifyCount.Int64),
		LastModifyYear:      int(modifyYear.Int64),
		EntitlementExpiry:   entitlement.date,
	}
	if birthMonth.Valid && birthDay.Valid && birthMonth.Int64 > 0 && birthDay.Int64 > 0 {
		// Rows written before birth_year existed fall back to year 2000,
		// which is a leap year and therefore accepts a Feb 29 recurrence.
		year := 2000
		if birthYear.Valid && birthYear.Int64 > 0 {
			year = int(birthYear.Int64)
		}
		d := time.Date(year, time.Month(birthMonth.Int64), int(birthDay.Int64), 0, 0, 0, 0, time.UTC)
		rec.BirthDate = &d
	}
	if createdAt.date != nil {
		rec.CreatedAt = *createdAt.date
	}
	if updatedAt.date != nil {
		rec.UpdatedAt = *updatedAt.date
	}
	return rec, nil
}

// filterUpcoming applies the upcoming-birthday window and ordering shared by
// every backend: keep records whose countdown lands in [0, withinDays], then
// sort ascending by countdown.
func filterUpcoming(records []*Record, withinDays int, now time.Time) []*Record {
	var upcoming []*Record
	for _, rec := range records {
		if !rec.HasBirthdaySet() {
			continue
		}
		days := rec.DaysUntilBirthday(now)
		if days >= 0 && days <= withinDays {
			upcoming = append(upcoming, rec)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DaysUntilBirthday(now) < upcoming[j].DaysUntilBirthday(now)
	})
	return upcoming
}

// dateArg encodes an optional date as a driver-portable YYYY-MM-DD string.
func dateArg(d *time.Time) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Format("2006-01-02")
}

// nullDate scans a day-precision date from whatever the driver hands back:
// mysql returns []byte, sqlite a string, pgx a time.Time.
type nullDate struct {
	date *time.Time
}

func (n *nullDate) Scan(v any) error {
	switch value := v.(type) {
	case nil:
		n.date = nil
		return nil
	case time.Time:
		d := DateOf(value)
		n.date = &d
		return nil
	case []byte:
		return n.parse(string(value))
	case string:
		return n.parse(value)
	default:
		return fmt.Errorf("unsupported date column type %T", v)
	}
}

func (n *nullDate) parse(s string) error {
	if s == "" {
		n.date = nil
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse date column %q: %w", s, err)
	}
	n.date = &t
	return nil
}
