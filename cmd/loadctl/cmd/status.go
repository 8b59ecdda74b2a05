package cmd

import (
	"fmt"
	"time"

	"loadgen/pkg/api"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Get status of a load job",
	Long:  `Retrieve the live status of a load job: its type, state (Running, Completed, Cancelled, Failed), parameters and start time. Finished jobs are only available through 'loadctl history'.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		job, err := newClient().GetJob(jobID)
		if err != nil {
			if IsNotFound(err) {
				cmd.Printf("Job %s not found (it may have already finished, see 'loadctl history')\n", jobID)
				return
			}
			cmd.Printf("Failed to get job: %v\n", err)
			return
		}

		printStatus(cmd, *job)
	},
}

func printStatus(cmd *cobra.Command, job api.JobStatusResponse) {
	// Header with status icon
	icon := statusIcon(job.State)
	cmd.Printf("%s %sLoad Job Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s          %s\n", colorDim, colorReset, job.JobID)
	cmd.Printf("%sType:%s        %s\n", colorDim, colorReset, job.Type)
	cmd.Printf("%sState:%s       %s\n", colorDim, colorReset, colorizeStatus(job.State))
	cmd.Printf("%sDetail:%s      %s\n", colorDim, colorReset, job.Detail)

	if job.DurationSeconds != nil {
		cmd.Printf("%sDuration:%s    %s\n", colorDim, colorReset, formatDuration(time.Duration(*job.DurationSeconds)*time.Second))
	} else {
		cmd.Printf("%sDuration:%s    until stopped\n", colorDim, colorReset)
	}

	started := job.StartedAt
	cmd.Printf("%sStarted:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&started))

	if job.EndedAt != nil {
		cmd.Printf("%sFinished:%s    %s %s(%s)%s\n", colorDim, colorReset,
			formatTimeWithRelative(job.EndedAt),
			colorCyan, formatDuration(job.EndedAt.Sub(job.StartedAt)), colorReset)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(state string) string {
	switch state {
	case api.StateCompleted:
		return colorGreen + "✓" + colorReset
	case api.StateFailed:
		return colorRed + "✗" + colorReset
	case api.StateRunning:
		return colorYellow + "⏳" + colorReset
	case api.StateCancelled:
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(state string) string {
	icon := statusIcon(state)
	switch state {
	case api.StateCompleted:
		return icon + " " + colorGreen + state + colorReset
	case api.StateFailed:
		return icon + " " + colorRed + state + colorReset
	case api.StateRunning:
		return icon + " " + colorYellow + state + colorReset
	case api.StateCancelled:
		return icon + " " + colorCyan + state + colorReset
	default:
		return state
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
