package database_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mautops/backoffice-gin/internal/config"
	"github.com/mautops/backoffice-gin/internal/database"
	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestBuildDSN(t *testing.T) {
	base := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		DBName:   "backoffice",
		SSLMode:  "disable",
	}

	t.Run("postgres", func(t *testing.T) {
		cfg := base
		cfg.Driver = "postgres"
		dsn := database.BuildDSN(cfg)
		assert.Contains(t, dsn, "host=localhost")
		assert.Contains(t, dsn, "dbname=backoffice")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("mysql", func(t *testing.T) {
		cfg := base
		cfg.Driver = "mysql"
		cfg.Port = 3306
		assert.Equal(t, "postgres:secret@tcp(localhost:3306)/backoffice?charset=utf8mb4&parseTime=True&loc=UTC", database.BuildDSN(cfg))
	})

	t.Run("sqlite", func(t *testing.T) {
		assert.Equal(t, "data.db", database.BuildDSN(config.DatabaseConfig{Driver: "sqlite", Path: "data.db"}))
	})
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := database.Connect(config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestConnectWithRetry_GivesUp(t *testing.T) {
	_, err := database.ConnectWithRetry(config.DatabaseConfig{Driver: "oracle"}, 2, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
}

func TestOpenSQLite_Migrates(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer database.Close(db)

	for _, m := range database.Models() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&model.TaskStepModel{}, "idx_task_steps_task_row"))
	assert.True(t, db.Migrator().HasIndex(&model.CurrentActivityModel{}, "idx_activity_order"))

	// 重复迁移是幂等的
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.VerifyIndexes(db))
}

func TestCheckHealth(t *testing.T) {
	require.Error(t, database.CheckHealth(context.Background(), nil))

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.CheckHealth(context.Background(), db))

	require.NoError(t, database.Close(db))
	assert.Error(t, database.CheckHealth(context.Background(), db))
	assert.NoError(t, database.Close(nil))
}

// TestQueryLogging 测试未命中记录不输出错误日志,真正的查询错误仍然输出
func TestQueryLogging(t *testing.T) {
	var buf bytes.Buffer
	std := logrus.StandardLogger()
	out := std.Out
	std.SetOutput(&buf)
	t.Cleanup(func() { std.SetOutput(out) })

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	buf.Reset()

	var stock model.StockModel
	err = db.Where("id = ?", "missing").First(&stock).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NotContains(t, buf.String(), "record not found")

	var row map[string]interface{}
	err = db.Table("no_such_table").Take(&row).Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no_such_table")
}
