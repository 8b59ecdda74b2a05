package cmd

import (
	"fmt"

	"loadgen/pkg/api"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/api/resource"
)

const mebibyte = 1 << 20

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Start a memory load job",
	Long: `Start a memory job that allocates and touches memory in 1 MiB chunks, then holds it
for --duration seconds or, with --hold, until it is stopped.

The amount can be given in MiB with --megabytes or as a Kubernetes quantity with
--size (e.g. 512Mi, 2Gi, 1G), which makes it easy to size a job against a pod's limits.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		megabytes, _ := cmd.Flags().GetInt("megabytes")
		size, _ := cmd.Flags().GetString("size")
		duration, _ := cmd.Flags().GetInt("duration")
		hold, _ := cmd.Flags().GetBool("hold")

		if size != "" {
			mb, err := quantityToMiB(size)
			if err != nil {
				cmd.Printf("Invalid --size: %v\n", err)
				return
			}
			megabytes = mb
		}

		resp, err := newClient().StartMemory(api.MemoryLoadRequest{
			Megabytes:        megabytes,
			DurationSeconds:  duration,
			HoldUntilStopped: hold,
		})
		if err != nil {
			cmd.Printf("Failed to start memory load: %v\n", err)
			return
		}

		cmd.Printf("%s✓%s Memory load started\n", colorGreen, colorReset)
		cmd.Printf("%sJob ID:%s %s\n", colorDim, colorReset, resp.JobID)
		if hold {
			cmd.Printf("Holding until stopped: loadctl stop %s\n", resp.JobID)
		}
	},
}

// quantityToMiB converts a Kubernetes quantity into whole MiB, rounding up.
func quantityToMiB(s string) (int, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, err
	}
	bytes := q.Value()
	if bytes <= 0 {
		return 0, fmt.Errorf("quantity %q must be positive", s)
	}
	return int((bytes + mebibyte - 1) / mebibyte), nil
}

func init() {
	memoryCmd.Flags().Int("megabytes", 256, "Memory to allocate in MiB")
	memoryCmd.Flags().String("size", "", "Memory to allocate as a Kubernetes quantity (overrides --megabytes)")
	memoryCmd.Flags().Int("duration", 60, "Duration in seconds (ignored with --hold)")
	memoryCmd.Flags().Bool("hold", false, "Hold the memory until the job is stopped")

	rootCmd.AddCommand(memoryCmd)
}
