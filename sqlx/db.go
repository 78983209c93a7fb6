package sqlx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kcmvp/arx/app"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// DB is the minimal database contract used by this package.
// It mirrors the methods we use from *sql.DB and can be backed by *sql.DB or a thin wrapper.
//
// This indirection lets us add cross-cutting features (SQL logging, tracing, metrics) without
// changing the higher-level active record APIs.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PingContext(ctx context.Context) error
	Close() error
	Dialect() Dialect
}

// stdDB adapts *sql.DB to the DB interface.
type stdDB struct {
	*sql.DB
	dialect Dialect
}

func (d stdDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.DB.ExecContext(ctx, query, args...)
}

func (d stdDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.DB.QueryContext(ctx, query, args...)
}

func (d stdDB) PingContext(ctx context.Context) error { return d.DB.PingContext(ctx) }

func (d stdDB) Dialect() Dialect { return d.dialect }

// Open opens a database handle for driver. The driver must be imported by the caller.
func Open(driver, dsn string) (DB, error) {
	d, err := DialectOf(driver)
	if err != nil {
		return nil, err
	}
	raw, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return stdDB{DB: raw, dialect: d}, nil
}

// Wrap adapts an already opened *sql.DB.
func Wrap(raw *sql.DB, driver string) (DB, error) {
	d, err := DialectOf(driver)
	if err != nil {
		return nil, err
	}
	return stdDB{DB: raw, dialect: d}, nil
}

// loggingDB is a thin wrapper around DB that logs SQL statements at debug level.
type loggingDB struct {
	inner  DB
	logger logrus.FieldLogger
}

func (d loggingDB) entry(start time.Time, err error) *logrus.Entry {
	e := d.logger.WithField("dur", time.Since(start)).WithField("dialect", d.inner.Dialect().Name())
	if err != nil {
		e = e.WithError(err)
	}
	return e
}

func (d loggingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := d.inner.ExecContext(ctx, query, args...)
	d.entry(start, err).WithField("args", args).Debugf("exec %s", query)
	return res, err
}

func (d loggingDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.inner.QueryContext(ctx, query, args...)
	d.entry(start, err).WithField("args", args).Debugf("query %s", query)
	return rows, err
}

func (d loggingDB) PingContext(ctx context.Context) error {
	start := time.Now()
	err := d.inner.PingContext(ctx)
	d.entry(start, err).Debug("ping")
	return err
}

func (d loggingDB) Close() error {
	start := time.Now()
	err := d.inner.Close()
	d.entry(start, err).Debug("close")
	return err
}

func (d loggingDB) Dialect() Dialect { return d.inner.Dialect() }

// WithSQLLogger wraps db with a SQL logger if logger is not nil.
func WithSQLLogger(db DB, logger logrus.FieldLogger) DB {
	if logger == nil {
		return db
	}
	return loggingDB{inner: db, logger: logger}
}

var (
	defaultDS DB
	// registry holds named datasource, keyed by lower case name
	dsRegistry = map[string]DB{}
	dsMu       sync.RWMutex

	initOnce sync.Once
	initErr  error

	// sqlLogger, when set, enables SQL logging for all registered datasources.
	sqlLogger logrus.FieldLogger
)

// SetSQLLogger enables SQL logging for all datasources registered after this call.
// Call this early (e.g., in main) before any DefaultDS/GetDS calls.
func SetSQLLogger(l logrus.FieldLogger) {
	sqlLogger = l
}

const (
	UserKey       = "${user}"
	PasswordKey   = "${password}"
	HostKey       = "${host}"
	defaultDSName = "DefaultDS"
)

type dataSource struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Host     string `mapstructure:"host" yaml:"host"`
	URL      string `mapstructure:"url" yaml:"url"`
}

// DSNChecked returns the final connection string for sql.Open and validates placeholder usage.
//
// Go database drivers don't share a single DSN format, so `url` is required and should be a
// driver-specific DSN/URI, optionally containing placeholders. A placeholder whose field is
// empty is an error.
func (ds dataSource) DSNChecked() (string, error) {
	if strings.TrimSpace(ds.URL) == "" {
		return "", fmt.Errorf("dsn requires url")
	}
	if strings.Contains(ds.URL, UserKey) && ds.User == "" {
		return "", fmt.Errorf("dsn requires user")
	}
	if strings.Contains(ds.URL, PasswordKey) && ds.Password == "" {
		return "", fmt.Errorf("dsn requires password")
	}
	if strings.Contains(ds.URL, HostKey) && ds.Host == "" {
		return "", fmt.Errorf("dsn requires host")
	}
	return ds.DSN(), nil
}

// DSN substitutes ${user}, ${password} and ${host} in ds.URL.
func (ds dataSource) DSN() string {
	dsn := strings.ReplaceAll(ds.URL, UserKey, ds.User)
	dsn = strings.ReplaceAll(dsn, PasswordKey, ds.Password)
	return strings.ReplaceAll(dsn, HostKey, ds.Host)
}

// viper lower cases map keys, so names are compared case-insensitively.
func dsKey(name string) string {
	if strings.TrimSpace(name) == "" {
		name = defaultDSName
	}
	return strings.ToLower(name)
}

// registerDataSource opens a database connection from cfg and registers it under the provided name.
// The connection is pinged before it is registered.
func registerDataSource(name string, cfg dataSource) error {
	if cfg.Driver == "" {
		return fmt.Errorf("driver is required to register datasource %q", name)
	}
	dsn, err := cfg.DSNChecked()
	if err != nil {
		return fmt.Errorf("invalid dsn for datasource %q: %w", name, err)
	}
	db, err := Open(cfg.Driver, dsn)
	if err != nil {
		return fmt.Errorf("open datasource %q: %w", name, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping datasource %q: %w", name, err)
	}
	register(name, WithSQLLogger(db, sqlLogger))
	return nil
}

func register(name string, db DB) {
	key := dsKey(name)
	dsMu.Lock()
	defer dsMu.Unlock()
	dsRegistry[key] = db
	if key == dsKey(defaultDSName) {
		defaultDS = db
	}
}

// SetConnection installs db as the default datasource, replacing any previous one.
// The replaced handle is not closed.
func SetConnection(db DB) {
	register(defaultDSName, db)
}

// Register installs db under name.
func Register(name string, db DB) {
	register(name, db)
}

func initDataSources() error {
	initOnce.Do(func() {
		res := app.Config()
		if res.IsError() {
			initErr = res.Error()
			return
		}
		cfg := res.MustGet()
		for name, val := range cfg.GetStringMap("datasource") {
			child := viper.New()
			m, ok := val.(map[string]any)
			if !ok {
				initErr = fmt.Errorf("datasource %s: expect a mapping, got %T", name, val)
				return
			}
			if err := child.MergeConfigMap(m); err != nil {
				initErr = fmt.Errorf("merge datasource %s: %w", name, err)
				return
			}
			var ds dataSource
			if err := child.Unmarshal(&ds); err != nil {
				initErr = fmt.Errorf("unmarshal datasource %s: %w", name, err)
				return
			}
			if err := registerDataSource(name, ds); err != nil {
				initErr = fmt.Errorf("register datasource %s: %w", name, err)
				return
			}
		}
	})
	return initErr
}

// InitDataSources registers every datasource declared under `datasource` in the application
// configuration. It runs once; later calls return the first result.
func InitDataSources() error {
	return initDataSources()
}

// GetDS returns a registered datasource by name. An empty name selects the default one.
func GetDS(name string) (DB, bool) {
	_ = initDataSources()
	dsMu.RLock()
	defer dsMu.RUnlock()
	db, ok := dsRegistry[dsKey(name)]
	return db, ok
}

// DefaultDS returns the default datasource if registered.
func DefaultDS() (DB, bool) {
	_ = initDataSources()
	dsMu.RLock()
	defer dsMu.RUnlock()
	return defaultDS, defaultDS != nil
}

// CloseDataSource closes and removes the named datasource from the registry.
func CloseDataSource(name string) error {
	key := dsKey(name)
	dsMu.Lock()
	defer dsMu.Unlock()
	db, ok := dsRegistry[key]
	if !ok {
		return nil
	}
	delete(dsRegistry, key)
	if key == dsKey(defaultDSName) {
		defaultDS = nil
	}
	return db.Close()
}

// CloseAllDataSources closes and removes all registered datasources from the registry.
// It returns the first error encountered while closing any datasource, or nil on success.
func CloseAllDataSources() error {
	dsMu.Lock()
	defer dsMu.Unlock()
	var firstErr error
	for name, db := range dsRegistry {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(dsRegistry, name)
	}
	defaultDS = nil
	return firstErr
}
