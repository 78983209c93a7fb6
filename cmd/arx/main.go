package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kcmvp/arx/app"
	"github.com/kcmvp/arx/cmd/arx/gen"
	"github.com/kcmvp/arx/cmd/arx/record"
	"github.com/kcmvp/arx/sample/entity"
	"github.com/kcmvp/arx/sqlx"
	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arx",
	Short: "arx maps Go structs to database tables.",
	Long: `arx generates entity mappings from struct tags and runs the active record
operations (save, find, delete) against the datasources declared in application.yml.`,
	SilenceUsage: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return sqlx.CloseAllDataSources()
	},
}

// resolve returns the datasource selected by --ds.
func resolve() (sqlx.DB, error) {
	if err := sqlx.InitDataSources(); err != nil {
		return nil, err
	}
	name, _ := rootCmd.PersistentFlags().GetString("ds")
	db, ok := sqlx.GetDS(name)
	if !ok {
		return nil, fmt.Errorf("datasource %q is not configured", name)
	}
	return db, nil
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the selected datasource is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := resolve()
		if err != nil {
			return err
		}
		if err = db.PingContext(cmd.Context()); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s is reachable\n", db.Dialect().Name())
		return nil
	},
}

func init() {
	sqlx.SetSQLLogger(app.Logger())
	rootCmd.PersistentFlags().String("ds", "", "datasource name, the default datasource when empty")
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(record.Command[entity.User]("user", "Manage the users of the sample application.", resolve))
	rootCmd.AddCommand(gen.GenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
