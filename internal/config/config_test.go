package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/config"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoad_Defaults 测试默认配置
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "development-only-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "client-records", cfg.Auth.Issuer)
	assert.Equal(t, 86400, cfg.Auth.TokenTTL)
	assert.Equal(t, 3, cfg.Events.MaxRetries)
	assert.False(t, config.IsProduction(cfg))
}

// TestLoad_EnvOverride 测试环境变量覆盖
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_DATABASE_DRIVER", "sqlite")
	t.Setenv("APP_DATABASE_PATH", "/tmp/records.db")
	path := writeConfig(t, "log:\n  level: warn\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/records.db", cfg.Database.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

// TestLoad_ProductionRequiresSecret 测试生产环境必须配置密钥
func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	path := writeConfig(t, "env: production\n")

	_, err := config.Load(path)
	assert.Error(t, err)

	t.Setenv("APP_AUTH_JWT_SECRET", "prod-secret")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, config.IsProduction(cfg))
	assert.Equal(t, "prod-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 200, cfg.Database.MaxOpenConns)
}

// TestConfig_Validate 测试配置校验
func TestConfig_Validate(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "mysql"}}
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "sqlite"
	assert.Error(t, cfg.Validate(), "sqlite requires a path")

	cfg.Database.Path = "records.db"
	assert.NoError(t, cfg.Validate())
}

// TestConfigWatcher_Reload 测试配置文件变更后回调
func TestConfigWatcher_Reload(t *testing.T) {
	t.Setenv("APP_ENV", "")
	path := writeConfig(t, "log:\n  level: info\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	logger, _ := logrustest.NewNullLogger()
	watcher := config.NewConfigWatcher(cfg, path, logger)
	levels := make(chan string, 4)
	watcher.OnConfigChange(func(newCfg *config.Config) {
		levels <- newCfg.Log.Level
	})
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644))

	select {
	case level := <-levels:
		assert.Equal(t, "error", level)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
	assert.Eventually(t, func() bool {
		return watcher.GetConfig().Log.Level == "error"
	}, 2*time.Second, 20*time.Millisecond)
}

// TestConfigWatcher_EmptyWriteAndEnv 测试截断产生的空文件被忽略,且热更新保留环境变量覆盖
func TestConfigWatcher_EmptyWriteAndEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_LOG_FORMAT", "json")
	path := writeConfig(t, "log:\n  level: info\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)

	logger, _ := logrustest.NewNullLogger()
	watcher := config.NewConfigWatcher(cfg, path, logger)
	changes := make(chan *config.Config, 8)
	watcher.OnConfigChange(func(newCfg *config.Config) {
		changes <- newCfg
	})
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644))

	select {
	case newCfg := <-changes:
		assert.Equal(t, "error", newCfg.Log.Level, "empty file must not reset to defaults")
		assert.Equal(t, "json", newCfg.Log.Format)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

// TestLoad_ProductionSecretFromFile 测试生产环境从配置文件读取密钥
func TestLoad_ProductionSecretFromFile(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	path := writeConfig(t, "env: production\nauth:\n  jwt_secret: file-secret\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
}
