package record

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/kcmvp/arx/entity"
	"github.com/kcmvp/arx/sqlx"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

// Resolver returns the connection a command runs against.
type Resolver func() (sqlx.DB, error)

// Command returns a command group exposing the active record operations of E.
func Command[E entity.Entity](use, short string, resolve Resolver) *cobra.Command {
	root := &cobra.Command{
		Use:   use,
		Short: short,
	}
	root.AddCommand(
		createTableCmd[E](resolve),
		saveCmd[E](resolve),
		getCmd[E](resolve),
		listCmd[E](resolve),
		findCmd[E](resolve),
		deleteCmd[E](resolve),
	)
	return root
}

func createTableCmd[E entity.Entity](resolve Resolver) *cobra.Command {
	return &cobra.Command{
		Use:   "create-table",
		Short: "Create the table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := resolve()
			if err != nil {
				return err
			}
			if err = sqlx.CreateTable[E](cmd.Context(), db); err != nil {
				return err
			}
			table, _ := sqlx.TableName[E]()
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "table %s is ready\n", table)
			return nil
		},
	}
}

func saveCmd[E entity.Entity](resolve Resolver) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Insert or update a record from a json object keyed by column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetString("json")
			m, err := entity.Of[E]()
			if err != nil {
				return err
			}
			e, err := m.Decode(raw)
			if err != nil {
				return err
			}
			db, err := resolve()
			if err != nil {
				return err
			}
			if _, err = sqlx.Save(cmd.Context(), db, e); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m.Values(e))
		},
	}
	cmd.Flags().String("json", "", "record as a json object, e.g. '{\"name\":\"Ann\"}'")
	_ = cmd.MarkFlagRequired("json")
	return cmd
}

func getCmd[E entity.Entity](resolve Resolver) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print the record with the given identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := entity.Of[E]()
			if err != nil {
				return err
			}
			id, err := m.PK().Parse(args[0])
			if err != nil {
				return err
			}
			db, err := resolve()
			if err != nil {
				return err
			}
			found, err := sqlx.FindByID[E](cmd.Context(), db, id)
			if err != nil {
				return err
			}
			e, ok := found.Get()
			if !ok {
				return fmt.Errorf("%s %s not found", m.Table(), args[0])
			}
			return printJSON(cmd.OutOrStdout(), m.Values(&e))
		},
	}
}

func listCmd[E entity.Entity](resolve Resolver) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := entity.Of[E]()
			if err != nil {
				return err
			}
			db, err := resolve()
			if err != nil {
				return err
			}
			all, err := sqlx.FindAll[E](cmd.Context(), db)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lo.Map(all, func(e E, _ int) map[string]any { return m.Values(&e) }))
		},
	}
}

func findCmd[E entity.Entity](resolve Resolver) *cobra.Command {
	return &cobra.Command{
		Use:   "find <column=value>...",
		Short: "Print the records matching every column=value pair",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := entity.Of[E]()
			if err != nil {
				return err
			}
			conds, err := conditions(m, args)
			if err != nil {
				return err
			}
			db, err := resolve()
			if err != nil {
				return err
			}
			found, err := sqlx.FindWhere[E](cmd.Context(), db, conds...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lo.Map(found, func(e E, _ int) map[string]any { return m.Values(&e) }))
		},
	}
}

func deleteCmd[E entity.Entity](resolve Resolver) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the record with the given identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := entity.Of[E]()
			if err != nil {
				return err
			}
			id, err := m.PK().Parse(args[0])
			if err != nil {
				return err
			}
			e := new(E)
			if err = m.PK().Assign(e, id); err != nil {
				return err
			}
			db, err := resolve()
			if err != nil {
				return err
			}
			if _, err = sqlx.Delete(cmd.Context(), db, e); err != nil {
				return err
			}
			color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", m.Table(), args[0])
			return nil
		},
	}
}

// conditions turns column=value arguments into typed conditions. Columns are matched the way
// the mapping matches them, values are parsed with the column type.
func conditions[E entity.Entity](m *entity.Mapping[E], args []string) ([]sqlx.Condition, error) {
	conds := make([]sqlx.Condition, 0, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid condition %q, expect column=value", arg)
		}
		col, ok := m.Column(name).Get()
		if !ok {
			return nil, fmt.Errorf("%s has no column %s", m.Table(), name)
		}
		v, err := col.Parse(raw)
		if err != nil {
			return nil, err
		}
		conds = append(conds, sqlx.Condition{Column: col.Name(), Value: v})
	}
	return conds, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}
