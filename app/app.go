package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	cfgName     = "application"
	testCfgName = "application_test"
	envPrefix   = "ARX"
)

var (
	cfg  *viper.Viper
	once sync.Once

	logger     *logrus.Logger
	loggerOnce sync.Once
)

// Config loads the application configuration.
//
// Rules:
//  1. If the current process is running `go test`, it reads application_test.yml.
//  2. Otherwise it reads application.yml.
//  3. It searches the project root, the working directory and their ./config.
//  4. Environment variables prefixed with ARX_ override file values,
//     e.g. ARX_LOGGING_LEVEL for logging.level.
func Config() mo.Result[*viper.Viper] {
	once.Do(func() {
		cfg, _ = loadViper(false)
	})
	return lo.If(cfg == nil, mo.Err[*viper.Viper](fmt.Errorf("can not find %s.yml", cfgName))).Else(mo.Ok(cfg))
}

func loadViper(required bool) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	addDefaultConfigPaths(v)

	name := lo.Ternary(isTestProcess(), testCfgName, cfgName)
	v.SetConfigName(name)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !required && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return v, nil
}

// addDefaultConfigPaths registers the project root (nearest parent holding go.mod) and the
// working directory, each with its "config" subdir.
//
// Viper resolves relative paths against the working directory, which varies between IDE runs,
// `go test` in package folders and deployed binaries; the project root keeps dev time stable.
func addDefaultConfigPaths(v *viper.Viper) {
	cwd, err := os.Getwd()
	if err != nil {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		return
	}
	if root, ok := findProjectRoot(cwd); ok {
		v.AddConfigPath(root)
		v.AddConfigPath(filepath.Join(root, "config"))
	}
	v.AddConfigPath(cwd)
	v.AddConfigPath(filepath.Join(cwd, "config"))
}

// findProjectRoot walks upward from `start` until it finds a directory containing a go.mod.
func findProjectRoot(start string) (string, bool) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// isTestProcess detects whether we are running under `go test`.
func isTestProcess() bool {
	for _, a := range os.Args {
		if strings.HasPrefix(a, "-test.") {
			return true
		}
	}
	// Fallback: scan stack frames for *_test.go.
	const maxFrames = 256
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if strings.HasSuffix(f.File, "_test.go") {
			return true
		}
		if !more {
			break
		}
	}
	return false
}

// Logger returns the application logger configured by `logging.level` (default info)
// and `logging.format` (text or json, default text).
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = newLogger(Config().OrElse(viper.New()))
	})
	return logger
}

func newLogger(v *viper.Viper) *logrus.Logger {
	l := logrus.New()
	level, err := logrus.ParseLevel(lo.CoalesceOrEmpty(v.GetString("logging.level"), "info"))
	if strings.EqualFold(v.GetString("logging.format"), "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if err != nil {
		level = logrus.InfoLevel
		l.WithError(err).Warn("invalid logging.level, fall back to info")
	}
	l.SetLevel(level)
	return l
}
