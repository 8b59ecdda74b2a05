package cmd

import (
	"loadgen/pkg/api"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active load jobs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		jobs, err := newClient().ListJobs()
		if err != nil {
			cmd.Printf("Failed to list jobs: %v\n", err)
			return
		}
		if len(jobs) == 0 {
			cmd.Println("No active load jobs")
			return
		}
		printJobTable(cmd, jobs)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently finished load jobs, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		jobs, err := newClient().History()
		if err != nil {
			cmd.Printf("Failed to get history: %v\n", err)
			return
		}
		if len(jobs) == 0 {
			cmd.Println("No finished load jobs")
			return
		}
		printJobTable(cmd, jobs)
	},
}

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the ceilings configured on the server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limits, err := newClient().Limits()
		if err != nil {
			cmd.Printf("Failed to get limits: %v\n", err)
			return
		}
		cmd.Printf("%sMax CPU threads:%s  %d\n", colorDim, colorReset, limits.MaxCPUThreads)
		cmd.Printf("%sMax memory (MiB):%s %d\n", colorDim, colorReset, limits.MaxMemoryMB)
		cmd.Printf("%sMax duration (s):%s %d\n", colorDim, colorReset, limits.MaxDurationSec)
	},
}

func printJobTable(cmd *cobra.Command, jobs []api.JobStatusResponse) {
	cmd.Printf("%s%-36s  %-6s  %-9s  %s%s\n", colorBold, "JOB ID", "TYPE", "STATE", "DETAIL", colorReset)
	for _, job := range jobs {
		cmd.Printf("%-36s  %-6s  %-9s  %s\n", job.JobID, job.Type, job.State, job.Detail)
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(limitsCmd)
}
