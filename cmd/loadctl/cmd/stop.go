package cmd

import (
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop [job_id]",
	Short: "Stop a running load job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		if err := newClient().Stop(jobID); err != nil {
			if IsNotFound(err) {
				cmd.Printf("Job %s not found (it may have already finished)\n", jobID)
				return
			}
			cmd.Printf("Failed to stop job: %v\n", err)
			return
		}
		cmd.Printf("Stop requested for %s\n", jobID)
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
