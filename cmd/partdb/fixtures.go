package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/partdb/backend/internal/infrastructure/fixtures"
)

func newFixturesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Demo data",
	}
	cmd.AddCommand(newFixturesLoadCmd(a))
	return cmd
}

func newFixturesLoadCmd(a *app) *cobra.Command {
	opts := fixtures.DefaultOptions()
	var seed uint64
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Fill an empty database with generated demo parts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}
			loader := fixtures.NewLoader(fixtures.Services{
				Categories:    svc.Categories,
				Locations:     svc.Locations,
				Footprints:    svc.Footprints,
				Manufacturers: svc.Manufacturers,
				Suppliers:     svc.Suppliers,
				Parts:         svc.Parts,
				Orderdetails:  svc.Orderdetails,
			}, seed, a.logger())

			sum, err := loader.Load(cmd.Context(), opts)
			if errors.Is(err, fixtures.ErrNotEmpty) {
				return fmt.Errorf("%w (use --force to load anyway)", err)
			}
			if err != nil {
				return err
			}

			t := a.table()
			t.SetTitle(fmt.Sprintf("Demo data loaded (seed %d)", seed))
			t.AppendHeader(table.Row{"Element", "Created"})
			t.AppendRows([]table.Row{
				{"Categories", sum.Categories},
				{"Footprints", sum.Footprints},
				{"Storage locations", sum.Locations},
				{"Manufacturers", sum.Manufacturers},
				{"Suppliers", sum.Suppliers},
				{"Parts", sum.Parts},
				{"Orderdetails", sum.Orderdetails},
			})
			t.Render()
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Parts, "parts", opts.Parts, "number of parts")
	f.IntVar(&opts.Manufacturers, "manufacturers", opts.Manufacturers, "number of manufacturers")
	f.IntVar(&opts.Suppliers, "suppliers", opts.Suppliers, "number of suppliers")
	f.IntVar(&opts.Boxes, "boxes", opts.Boxes, "number of storage boxes")
	f.Uint64Var(&seed, "seed", 0, "random seed, the same seed creates the same data")
	f.BoolVar(&opts.Force, "force", false, "load even if the database already has data")
	return cmd
}
