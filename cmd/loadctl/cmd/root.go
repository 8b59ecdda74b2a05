package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "loadctl",
	Short: "loadctl starts and inspects synthetic CPU and memory load on a loadgen instance",
	Long: `loadctl is the command-line interface for loadgen, a service that burns CPU and
holds memory on demand so cluster autoscaling can be exercised end to end.

Every request is clamped against the ceilings configured on the server
(MAX_CPU_THREADS, MAX_MEM_MB, MAX_DURATION_SEC); out-of-range values are not errors.

Common workflows:

  Burn two cores at 80% for five minutes:
    loadctl cpu --threads 2 --intensity 80 --duration 300

  Hold 512Mi of memory until stopped:
    loadctl memory --size 512Mi --hold

  Inspect and stop jobs:
    loadctl list
    loadctl status <job-id>
    loadctl stop <job-id>
    loadctl history

Configuration:
  Set the API endpoint via flag, environment variable or config file:
    LOADGEN_URL    API endpoint (default: http://localhost:8080)`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".loadctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".loadctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "LOADGEN_VARNAME"
	viper.SetEnvPrefix("LOADGEN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *LoadClient {
	return NewLoadClient(viper.GetString("url"))
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.loadctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "loadgen URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}
