package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

type swatch struct {
	ID    int
	Color string
}

func openSQLite(t *testing.T, cfg *gorm.Config) *gorm.DB {
	t.Helper()
	if cfg == nil {
		cfg = &gorm.Config{SkipDefaultTransaction: true}
	}
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), cfg)
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&swatch{}))
	return conn
}

func countSwatches(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&swatch{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	conn := openSQLite(t, nil)
	client := FromGorm(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&swatch{Color: "walnut"}).Error
	}))
	assert.EqualValues(t, 1, countSwatches(t, conn))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&swatch{Color: "oak"}).Error; err != nil {
			return err
		}
		return errors.New("stock check failed")
	})
	require.EqualError(t, err, "stock check failed")
	assert.EqualValues(t, 1, countSwatches(t, conn))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	conn := openSQLite(t, nil)
	client := FromGorm(conn)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&swatch{Color: "ash"}).Error)
			panic("boom")
		})
	})
	assert.EqualValues(t, 0, countSwatches(t, conn))
}

func TestNewOpensSQLiteAndPings(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: "postgres"}, nil)
	assert.Error(t, err)

	_, err = dialectorFor(config.DBConfig{DSN: "x", Driver: "mysql"})
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)
}

func TestQueryLoggerReportsFailuresButNotMisses(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	conn := openSQLite(t, &gorm.Config{Logger: newQueryLogger(logg, 0)})

	var s swatch
	err := conn.First(&s, 42).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	require.Error(t, conn.Exec("SELECT * FROM missing_table").Error)
	assert.Contains(t, buf.String(), `"message":"db.query_failed"`)
	assert.Contains(t, buf.String(), "missing_table")
}

func TestQueryLoggerFlagsSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	ql := newQueryLogger(logg, time.Millisecond)

	ql.Trace(context.Background(), time.Now().Add(-50*time.Millisecond), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	assert.Contains(t, buf.String(), `"message":"db.slow_query"`)
	assert.Contains(t, buf.String(), `"rows":1`)

	buf.Reset()
	ql.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	assert.Empty(t, buf.String(), "silent mode logs nothing")
}
