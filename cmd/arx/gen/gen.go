package gen

import (
	"context"
	"fmt"
	"slices"
	"strings"

	_ "embed"

	"github.com/fatih/color"
	"github.com/kcmvp/arx/cmd/internal"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

type ctxKey string

// projectKey is the context key used to store the inspected project.
const projectKey ctxKey = "gen.project"

//go:embed resources/drivers.json
var driversJSON []byte

// GenCmd generates entity mappings from struct tags.
var GenCmd = &cobra.Command{
	Use:   "gen [entities...]",
	Short: "Generate <entity>_mapping_gen.go for all entities, or for a subset by passing space-separated entity names (e.g. `arx gen User`).",
	Args:  cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1: ensure the working project depends on this tool's module
		project, err := internal.Current()
		if err != nil {
			return fmt.Errorf("project context not initialized: %w", err)
		}
		if !project.DependsOnTool() {
			return fmt.Errorf("project does not depend on %s; add it to go.mod", internal.ToolModulePath())
		}
		// 2: ensure the project depends on at least one database driver
		if _, err = detectDatabases(project); err != nil {
			return err
		}
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		cmd.SetContext(context.WithValue(parent, projectKey, project))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		project := cmd.Context().Value(projectKey).(*internal.Project)
		names := lo.Uniq(lo.FilterMap(args, func(a string, _ int) (string, bool) {
			a = strings.TrimSpace(a)
			return a, a != ""
		}))
		written, err := generate(project, names)
		for _, path := range written {
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "generated %s\n", path)
		}
		return err
	},
}

// detectDatabases returns the databases, sorted, whose driver module the project requires.
func detectDatabases(project *internal.Project) ([]string, error) {
	driverMap := make(map[string][]string)
	gjson.ParseBytes(driversJSON).ForEach(func(key, value gjson.Result) bool {
		driverMap[key.String()] = lo.Map(value.Get("drivers").Array(), func(item gjson.Result, _ int) string {
			return item.String()
		})
		return true
	})
	drivers := lo.Flatten(lo.Values(driverMap))
	driverOpt := project.DependsOn(drivers...)
	if driverOpt.IsAbsent() {
		return nil, fmt.Errorf("project does not depend on any database driver %s; add one to go.mod", drivers)
	}
	registered := lo.FilterMapToSlice(driverMap, func(key string, values []string) (string, bool) {
		return key, len(lo.Intersect(driverOpt.MustGet(), values)) > 0
	})
	slices.Sort(registered)
	return registered, nil
}
