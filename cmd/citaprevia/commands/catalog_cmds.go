package commands

import (
	"cmp"
	"fmt"
	"slices"

	"citaprevia/internal/catalog"
	"citaprevia/internal/citaprevia"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newListOfficesCmd(a *app) *cobra.Command {
	var group string
	var procedure uint32

	cmd := &cobra.Command{
		Use:   "list-offices [--group <group>] [--procedure <procedure id>]",
		Short: "Lists the offices of the catalog sorted by group and name.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}

			offices := c.FilterOffices(catalog.Filter{
				Group:       group,
				ProcedureId: citaprevia.ProcedureId(procedure),
			})
			slices.SortStableFunc(offices, func(x, y catalog.Office) int {
				return cmp.Or(cmp.Compare(x.Group, y.Group), cmp.Compare(x.Name, y.Name))
			})

			t := newTable(a.out)
			t.AppendHeader(table.Row{"ID", "Group", "Name"})
			for _, o := range offices {
				t.AppendRow(table.Row{o.Id, o.Group, o.Name})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "Only offices in this group, ignoring case.")
	cmd.Flags().Uint32VarP(&procedure, "procedure", "p", 0, "Only offices that offer this procedure.")
	return cmd
}

func newListProceduresCmd(a *app) *cobra.Command {
	var category string
	var search string

	cmd := &cobra.Command{
		Use:   "list-procedures [--category <category>] [--search <name>]",
		Short: "Lists the procedures of the catalog.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}

			if search != "" {
				p, similarity, ok := c.FindProcedure(search)
				if !ok {
					return unsatisfied("the catalog has no procedures")
				}
				fmt.Fprintf(a.out, "%d | %s | %s (similarity %.2f)\n", p.Id, p.Category, p.Name, similarity)
				return nil
			}

			procedures := c.Procedures()
			if category != "" {
				procedures = c.ProceduresInCategory(category)
			}

			t := newTable(a.out)
			t.AppendHeader(table.Row{"ID", "Category", "Name"})
			for _, p := range procedures {
				t.AppendRow(table.Row{p.Id, p.Category, p.Name})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only procedures in this category, ignoring case.")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Print the procedure with the most similar name.")
	return cmd
}

func newOfficeInfoCmd(a *app) *cobra.Command {
	var officeId uint32

	cmd := &cobra.Command{
		Use:   "office-info --office-id <id>",
		Short: "Prints what the catalog knows about an office.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			office, ok := c.Office(citaprevia.OfficeId(officeId))
			if !ok {
				return fmt.Errorf("office with ID %d not found", officeId)
			}

			fmt.Fprintln(a.out, "Office Information:")
			fmt.Fprintf(a.out, " - ID: %d\n", office.Id)
			fmt.Fprintf(a.out, " - Name: %s\n", office.Name)
			fmt.Fprintf(a.out, " - Group: %s\n", office.Group)
			fmt.Fprintln(a.out, " - Available Procedures:")
			for _, p := range office.Procedures {
				name := p.Name
				if global, ok := c.Procedure(p.ProcedureId); ok {
					name = global.Name
				}
				fmt.Fprintf(a.out, "  - %s (ID: %d; Procedure Office ID: %d)\n", name, p.ProcedureId, p.ProcedureOfficeId)
			}
			return nil
		},
	}
	cmd.Flags().Uint32VarP(&officeId, "office-id", "o", 0, "The office to describe.")
	cmd.MarkFlagRequired("office-id")
	return cmd
}

func newDatagenCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "datagen [--out <path>]",
		Short: "Downloads a fresh catalog from the appointment system.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			c, err := catalog.Build(cmd.Context(), client, a.tel)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path, err = a.catalogPath()
				if err != nil {
					return err
				}
			}
			err = c.Save(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(
				cmd.ErrOrStderr(), "wrote %d offices and %d procedures to %s\n",
				len(c.Offices()), len(c.Procedures()), path,
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Where to write the catalog, defaults to the configured catalog path.")
	return cmd
}
