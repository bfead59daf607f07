package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/starmarket/internal/engine"
	"github.com/talgya/starmarket/internal/galaxy"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the saved world: bodies, prices and fleets",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ok, err := db.HasWorld()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no saved world in %s", cfg.Simulation.DBDSN)
		}
		sim, err := db.LoadWorld(cfg.Params())
		if err != nil {
			return err
		}

		printWorld(sim, all)
		return nil
	},
}

func init() {
	inspectCmd.Flags().Bool("all", false, "include uninhabited bodies")
}

func printWorld(sim *engine.Simulation, all bool) {
	fmt.Printf("%s (tick %d)\n\n", engine.SimTime(sim.LastTick), sim.LastTick)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BODY\tCLASS\tEMPIRE\tPOPULATION\tBALANCE\tMINERS\tFREIGHTERS\tPRICES")
	for _, b := range sim.Galaxy.Bodies {
		if !all && !b.Inhabited() {
			continue
		}
		balance := "-"
		if b.Inhabited() {
			f, _ := sim.Treasury.Balance(b.ID).Float64()
			balance = humanize.Commaf(f)
		}
		miners, freighters := sim.Agents.CountHome(b.ID)

		prices := ""
		for _, r := range galaxy.AllResources() {
			if p, ok := sim.Prices.Price(b.ID, r); ok {
				prices += fmt.Sprintf("%s=%.1f ", r, p.Value)
			}
		}
		fmt.Fprintf(w, "%d %s\t%s\t%d\t%s\t%s\t%d\t%d\t%s\n",
			b.ID, b.Name, b.Class, b.Empire, humanize.Comma(int64(b.Population)),
			balance, miners, freighters, prices)
	}
	w.Flush()

	states := make(map[string]int)
	for _, a := range sim.Agents.MiningAgents() {
		states[a.State.String()]++
	}
	fmt.Printf("\nmining fleet: %d (seeking %d, fulfilling %d, sleeping %d)\n",
		len(sim.Agents.MiningAgents()), states["seeking_contract"], states["fulfilling_contract"], states["sleeping"])
	fmt.Printf("freighters:   %d\n", len(sim.Agents.TradeAgents()))
	total, _ := sim.Treasury.Total().Float64()
	fmt.Printf("treasury:     %s\n", humanize.Commaf(total))
}
