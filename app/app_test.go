package app

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func reset() {
	cfg = nil
	once = sync.Once{}
	logger = nil
	loggerOnce = sync.Once{}
}

func TestConfig_LoadsApplicationTestYml(t *testing.T) {
	reset()
	t.Cleanup(reset)

	res := Config()
	require.True(t, res.IsOk())
	v := res.MustGet()
	require.Equal(t, "application_test.yml", filepath.Base(v.ConfigFileUsed()))

	// viper keys are case-insensitive
	require.Equal(t, "sqlite3", v.GetString("datasource.DefaultDS.driver"))
	require.Equal(t, "sqlite3", v.GetString("datasource.defaultds.driver"))
}

func TestConfig_EnvOverride(t *testing.T) {
	reset()
	t.Cleanup(reset)
	t.Setenv("ARX_LOGGING_LEVEL", "warn")

	v := Config().MustGet()
	require.Equal(t, "warn", v.GetString("logging.level"))
	require.Equal(t, logrus.WarnLevel, Logger().GetLevel())
}

func TestConfig_FromConfigDir(t *testing.T) {
	reset()
	t.Cleanup(reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/m\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "application_test.yml"), []byte("logging:\n  format: json\n"), 0o644))
	t.Chdir(dir)

	v := Config().MustGet()
	require.Equal(t, "json", v.GetString("logging.format"))
	_, ok := Logger().Formatter.(*logrus.JSONFormatter)
	require.True(t, ok)
}

func TestFindProjectRoot(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	root, ok := findProjectRoot(cwd)
	require.True(t, ok)
	require.Equal(t, filepath.Dir(cwd), root)

	_, ok = findProjectRoot(string(filepath.Separator))
	require.False(t, ok)
}

func TestNewLogger(t *testing.T) {
	v := viper.New()
	l := newLogger(v)
	require.Equal(t, logrus.InfoLevel, l.GetLevel())

	v.Set("logging.level", "debug")
	require.Equal(t, logrus.DebugLevel, newLogger(v).GetLevel())

	v.Set("logging.level", "chatty")
	require.Equal(t, logrus.InfoLevel, newLogger(v).GetLevel())
}

func TestIsTestProcess(t *testing.T) {
	require.True(t, isTestProcess())
}
