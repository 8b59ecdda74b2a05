package cmd

import (
	"loadgen/pkg/api"

	"github.com/spf13/cobra"
)

var cpuCmd = &cobra.Command{
	Use:   "cpu",
	Short: "Start a CPU load job",
	Long: `Start a CPU burn job. Each thread alternates between busy-spinning and sleeping
inside 100ms windows so that it consumes roughly --intensity percent of one core.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		threads, _ := cmd.Flags().GetInt("threads")
		intensity, _ := cmd.Flags().GetInt("intensity")
		duration, _ := cmd.Flags().GetInt("duration")

		resp, err := newClient().StartCPU(api.CPULoadRequest{
			Threads:          threads,
			IntensityPercent: intensity,
			DurationSeconds:  duration,
		})
		if err != nil {
			cmd.Printf("Failed to start CPU load: %v\n", err)
			return
		}

		cmd.Printf("%s✓%s CPU load started\n", colorGreen, colorReset)
		cmd.Printf("%sJob ID:%s %s\n", colorDim, colorReset, resp.JobID)
	},
}

func init() {
	cpuCmd.Flags().Int("threads", 1, "Number of busy threads")
	cpuCmd.Flags().Int("intensity", 50, "Target utilisation of each thread, 1-100")
	cpuCmd.Flags().Int("duration", 60, "Duration in seconds")

	rootCmd.AddCommand(cpuCmd)
}
