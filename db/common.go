package db

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/evmstore/dbtypes"
	"github.com/ethpandaops/evmstore/types"

	_ "github.com/jackc/pgx/v4/stdlib"
)

//go:embed schema/pgsql/*.sql
var EmbedPgsqlSchema embed.FS

//go:embed schema/sqlite/*.sql
var EmbedSqliteSchema embed.FS

// goose keeps its base fs and dialect in package globals
var gooseMutex sync.Mutex

var logger = logrus.StandardLogger().WithField("module", "db")

// Database is an explicit handle to the node store. It replaces any
// ambient connection: every leaf operation receives the handle (or an
// open transaction) from its caller.
type Database struct {
	engine      dbtypes.DBEngineType
	readerDb    *sqlx.DB
	writerDb    *sqlx.DB
	writerMutex sync.Mutex
}

// NewDatabase opens the configured storage engine. Open and ping failures
// are returned wrapped in ErrConnection.
func NewDatabase(config *types.DatabaseConfig) (*Database, error) {
	switch config.Engine {
	case "sqlite":
		if config.Sqlite == nil {
			return nil, fmt.Errorf("%w: missing sqlite config", ErrConnection)
		}
		dbConn, err := initSqlite(config.Sqlite)
		if err != nil {
			return nil, err
		}
		return &Database{
			engine:   dbtypes.DBEngineSqlite,
			readerDb: dbConn,
			writerDb: dbConn,
		}, nil
	case "pgsql":
		if config.Pgsql == nil {
			return nil, fmt.Errorf("%w: missing pgsql config", ErrConnection)
		}
		readerConfig := config.Pgsql
		writerConfig := (*types.PgsqlDatabaseConfig)(config.PgsqlWriter)
		if writerConfig == nil || writerConfig.Host == "" {
			writerConfig = readerConfig
		}
		writer, reader, err := initPgsql(writerConfig, readerConfig)
		if err != nil {
			return nil, err
		}
		return &Database{
			engine:   dbtypes.DBEnginePgsql,
			readerDb: reader,
			writerDb: writer,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown database engine type: %s", ErrConnection, config.Engine)
	}
}

func checkDbConn(dbConn *sqlx.DB, dataBaseName string) error {
	// some sql drivers do not honor the context deadline on connect,
	// so the ping is bounded by a timer as well
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- dbConn.PingContext(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("%w: unable to ping %s: %v", ErrConnection, dataBaseName, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("%w: timeout while connecting to %s", ErrConnection, dataBaseName)
	}

	return nil
}

func sqliteDsn(config *types.SqliteDatabaseConfig) string {
	synchronous := strings.ToUpper(config.Synchronous)
	switch synchronous {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		synchronous = "FULL"
	}

	pragmas := url.Values{}
	pragmas.Add("_pragma", "journal_mode(WAL)")
	pragmas.Add("_pragma", fmt.Sprintf("synchronous(%s)", synchronous))
	pragmas.Add("_pragma", "busy_timeout(5000)")
	return fmt.Sprintf("%s?%s", config.File, pragmas.Encode())
}

func initSqlite(config *types.SqliteDatabaseConfig) (*sqlx.DB, error) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 50
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.Infof("initializing sqlite connection to %v with %v/%v conn limit", config.File, config.MaxIdleConns, config.MaxOpenConns)
	dbConn, err := sqlx.Open("sqlite", sqliteDsn(config))
	if err != nil {
		return nil, fmt.Errorf("%w: error opening sqlite database: %v", ErrConnection, err)
	}

	if err := checkDbConn(dbConn, "database"); err != nil {
		dbConn.Close()
		return nil, err
	}
	dbConn.SetConnMaxIdleTime(0)
	dbConn.SetConnMaxLifetime(0)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	return dbConn, nil
}

func pgsqlDriverName(config *types.PgsqlDatabaseConfig) string {
	if config.Driver == "pq" || config.Driver == "postgres" {
		return "postgres"
	}
	return "pgx"
}

func openPgsql(config *types.PgsqlDatabaseConfig, name string) (*sqlx.DB, error) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 50
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.Infof("initializing pgsql %v connection to %v with %v/%v conn limit", name, config.Host, config.MaxIdleConns, config.MaxOpenConns)
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", url.QueryEscape(config.Username), url.QueryEscape(config.Password), config.Host, config.Port, config.Name)
	dbConn, err := sqlx.Open(pgsqlDriverName(config), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: error opening pgsql %v database: %v", ErrConnection, name, err)
	}

	if err := checkDbConn(dbConn, name+" database"); err != nil {
		dbConn.Close()
		return nil, err
	}
	dbConn.SetConnMaxIdleTime(time.Second * 30)
	dbConn.SetConnMaxLifetime(time.Second * 60)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	return dbConn, nil
}

func initPgsql(writer *types.PgsqlDatabaseConfig, reader *types.PgsqlDatabaseConfig) (*sqlx.DB, *sqlx.DB, error) {
	dbConnWriter, err := openPgsql(writer, "writer")
	if err != nil {
		return nil, nil, err
	}

	dbConnReader, err := openPgsql(reader, "reader")
	if err != nil {
		dbConnWriter.Close()
		return nil, nil, err
	}

	return dbConnWriter, dbConnReader, nil
}

func (d *Database) Close() error {
	err := d.writerDb.Close()
	if err != nil {
		logger.Errorf("Error closing writer db connection: %v", err)
	}
	if d.readerDb != d.writerDb {
		if rerr := d.readerDb.Close(); rerr != nil {
			logger.Errorf("Error closing reader db connection: %v", rerr)
			if err == nil {
				err = rerr
			}
		}
	}
	return err
}

func (d *Database) Engine() dbtypes.DBEngineType {
	return d.engine
}

// Reader returns the handle for read-only queries outside of a transaction.
func (d *Database) Reader() *sqlx.DB {
	return d.readerDb
}

// RunDBTransaction runs handler inside one writer transaction. The
// transaction is committed only when handler returns nil; on any error
// nothing handler wrote becomes visible.
func (d *Database) RunDBTransaction(ctx context.Context, handler func(tx *sqlx.Tx) error) error {
	if d.engine == dbtypes.DBEngineSqlite {
		d.writerMutex.Lock()
		defer d.writerMutex.Unlock()
	}

	tx, err := d.writerDb.BeginTxx(ctx, nil)
	if err != nil {
		return classifyError(fmt.Errorf("error starting db transaction: %w", err))
	}

	defer tx.Rollback()

	err = handler(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return classifyError(fmt.Errorf("error committing db transaction: %w", err))
	}

	return nil
}

func (d *Database) gooseSetup() (string, error) {
	var engineDialect string
	var schemaDirectory string
	switch d.engine {
	case dbtypes.DBEnginePgsql:
		goose.SetBaseFS(EmbedPgsqlSchema)
		engineDialect = "postgres"
		schemaDirectory = "schema/pgsql"
	case dbtypes.DBEngineSqlite:
		goose.SetBaseFS(EmbedSqliteSchema)
		engineDialect = "sqlite3"
		schemaDirectory = "schema/sqlite"
	default:
		return "", fmt.Errorf("unknown database engine")
	}
	goose.SetLogger(logger)
	if err := goose.SetDialect(engineDialect); err != nil {
		return "", err
	}
	return schemaDirectory, nil
}

// ApplyEmbeddedDbSchema migrates the schema: -2 applies all pending
// migrations, -1 applies the next one, any other value migrates up to that
// version.
func (d *Database) ApplyEmbeddedDbSchema(version int64) error {
	gooseMutex.Lock()
	defer gooseMutex.Unlock()

	schemaDirectory, err := d.gooseSetup()
	if err != nil {
		return err
	}

	if version == -2 {
		if err := goose.Up(d.writerDb.DB, schemaDirectory, goose.WithAllowMissing()); err != nil {
			return err
		}
	} else if version == -1 {
		if err := goose.UpByOne(d.writerDb.DB, schemaDirectory, goose.WithAllowMissing()); err != nil {
			return err
		}
	} else {
		if err := goose.UpTo(d.writerDb.DB, schemaDirectory, version, goose.WithAllowMissing()); err != nil {
			return err
		}
	}

	return nil
}

// GetCurrentMigration returns the version of the last applied schema migration.
func (d *Database) GetCurrentMigration() (int64, error) {
	gooseMutex.Lock()
	defer gooseMutex.Unlock()

	if _, err := d.gooseSetup(); err != nil {
		return 0, err
	}

	version, err := goose.GetDBVersion(d.writerDb.DB)
	if err != nil {
		return 0, classifyError(err)
	}
	return version, nil
}

func engineOf(q sqlx.QueryerContext) dbtypes.DBEngineType {
	if named, ok := q.(interface{ DriverName() string }); ok {
		return dbtypes.EngineFromDriverName(named.DriverName())
	}
	return dbtypes.DBEngineAny
}

// EngineQuery picks the query for the engine behind q, falling back to
// the DBEngineAny entry.
func EngineQuery(q sqlx.QueryerContext, queryMap map[dbtypes.DBEngineType]string) string {
	if query := queryMap[engineOf(q)]; query != "" {
		return query
	}
	return queryMap[dbtypes.DBEngineAny]
}
