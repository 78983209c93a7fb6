package gen

import (
	"context"
	"testing"

	"github.com/kcmvp/arx/cmd/internal"
	"github.com/stretchr/testify/require"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

func TestPersistentPreRun(t *testing.T) {
	GenCmd.SetContext(context.Background())
	err := GenCmd.PersistentPreRunE(GenCmd, []string{})
	require.NoError(t, err)

	project, ok := GenCmd.Context().Value(projectKey).(*internal.Project)
	require.True(t, ok)
	require.Equal(t, "github.com/kcmvp/arx", project.Mod.Module.Mod.Path)

	databases, err := detectDatabases(project)
	require.NoError(t, err)
	require.Equal(t, []string{"mysql", "postgres", "sqlite"}, databases)
}

func TestDetectDatabases(t *testing.T) {
	project := func(deps ...string) *internal.Project {
		mod := &modfile.File{Module: &modfile.Module{Mod: module.Version{Path: "example.com/app"}}}
		for _, dep := range deps {
			mod.Require = append(mod.Require, &modfile.Require{Mod: module.Version{Path: dep}})
		}
		return &internal.Project{Mod: mod}
	}

	_, err := detectDatabases(project("github.com/kcmvp/arx"))
	require.ErrorContains(t, err, "does not depend on any database driver")

	databases, err := detectDatabases(project("modernc.org/sqlite"))
	require.NoError(t, err)
	require.Equal(t, []string{"sqlite"}, databases)

	databases, err = detectDatabases(project("github.com/jackc/pgx/v5", "github.com/go-sql-driver/mysql"))
	require.NoError(t, err)
	require.Equal(t, []string{"mysql", "postgres"}, databases)
}
