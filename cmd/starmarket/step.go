package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Advance the saved world a number of days as fast as possible",
	RunE: func(cmd *cobra.Command, args []string) error {
		ticks, _ := cmd.Flags().GetInt("ticks")
		fresh, _ := cmd.Flags().GetBool("fresh")
		noSave, _ := cmd.Flags().GetBool("no-save")
		if ticks <= 0 {
			return fmt.Errorf("--ticks must be positive, got %d", ticks)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sim, err := loadOrCreate(db, fresh)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := sim.Run(cmd.Context(), ticks); err != nil {
			return err
		}
		logSummary(fmt.Sprintf("advanced %d days in %s", ticks, time.Since(start).Round(time.Millisecond)), sim)

		if noSave {
			return nil
		}
		return db.SaveWorldState(sim)
	},
}

func init() {
	stepCmd.Flags().Int("ticks", 30, "number of days to simulate")
	stepCmd.Flags().Bool("fresh", false, "ignore saved state and build a new world")
	stepCmd.Flags().Bool("no-save", false, "do not write the result back")
}
