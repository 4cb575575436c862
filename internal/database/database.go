package database

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/paragon-scan/paragongo/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
)

// DB wraps gorm.DB and includes a reference to an embedded process if active
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
	log      *logrus.Logger
}

// cleanupStaleEmbeddedPostgres cleans up leftover processes from a previous crash
func cleanupStaleEmbeddedPostgres(log *logrus.Logger) {
	pidFile := filepath.Join(embeddedDataPath, "postmaster.pid")

	data, err := os.ReadFile(pidFile)
	if err != nil {
		// No pid file = clean state
		return
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	if !scanner.Scan() {
		return
	}
	pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		log.WithError(err).Warn("Could not parse PID from postmaster.pid")
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		log.WithField("pid", pid).Info("Cleaning up stale postmaster.pid")
		os.Remove(pidFile)
		return
	}

	// On Unix, FindProcess always succeeds, so send signal 0 to check
	if err := process.Signal(syscall.Signal(0)); err != nil {
		log.WithField("pid", pid).Info("Cleaning up stale postmaster.pid (process not running)")
		os.Remove(pidFile)
		return
	}

	log.WithField("pid", pid).Warn("Found orphaned PostgreSQL process, attempting to stop")

	if err := process.Signal(syscall.SIGTERM); err != nil {
		log.WithError(err).WithField("pid", pid).Warn("Could not send SIGTERM")
	}

	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if err := process.Signal(syscall.Signal(0)); err != nil {
			log.Info("Orphaned PostgreSQL process stopped")
			os.Remove(pidFile)
			return
		}
	}

	log.Warn("Process did not stop gracefully, sending SIGKILL")
	process.Kill()
	time.Sleep(500 * time.Millisecond)
	os.Remove(pidFile)
}

// isPortInUse checks if a port is already in use
func isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Connect establishes a connection to a PostgreSQL database (external or embedded)
func Connect(cfg config.DatabaseConfig, log *logrus.Logger) (*DB, error) {
	if log == nil {
		log = logrus.New()
	}

	var embedded *embeddedpostgres.EmbeddedPostgres

	// Localhost with no password selects embedded mode
	isEmbedded := cfg.Host == "localhost" && cfg.Password == ""

	password := cfg.Password
	if isEmbedded {
		log.Info("Mode: [Embedded PostgreSQL] - initializing internal database")

		cleanupStaleEmbeddedPostgres(log)

		if isPortInUse(embeddedPort) {
			log.WithField("port", embeddedPort).Warn("Port still in use, waiting for release")
			for i := 0; i < 6; i++ {
				time.Sleep(500 * time.Millisecond)
				if !isPortInUse(embeddedPort) {
					break
				}
			}
			if isPortInUse(embeddedPort) {
				return nil, fmt.Errorf("port %d is still in use by another process", embeddedPort)
			}
		}

		embeddedCfg := embeddedpostgres.DefaultConfig().
			DataPath(embeddedDataPath).
			Port(uint32(embeddedPort)).
			Database(cfg.Database).
			Username(cfg.Username).
			Password("postgres")

		embedded = embeddedpostgres.NewDatabase(embeddedCfg)

		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("failed to start embedded database: %w", err)
		}

		cfg.Port = strconv.Itoa(embeddedPort)
		password = "postgres"
		log.WithField("port", embeddedPort).Info("Embedded PostgreSQL process started")
	} else {
		log.WithFields(logrus.Fields{"host": cfg.Host, "port": cfg.Port}).Info("Mode: [External PostgreSQL]")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		password,
		cfg.Database,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		// Clean up embedded process if GORM connection fails
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("Database connection established")

	return &DB{
		DB:       db,
		embedded: embedded,
		log:      log,
	}, nil
}

// Close ensures the database connection and embedded process are shut down
func (db *DB) Close() error {
	if db.embedded != nil {
		db.log.Info("Stopping Embedded PostgreSQL process")
		_ = db.embedded.Stop()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate triggers GORM schema synchronization
func (db *DB) AutoMigrate(models ...interface{}) error {
	return db.DB.AutoMigrate(models...)
}
