package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	// Optional .env for API keys; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trendcast",
		Short: "Discover trending topics and produce videos for them automatically",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(discoverCmd())
	root.AddCommand(jobsCmd())
	root.AddCommand(retryCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func discoverCmd() *cobra.Command {
	var (
		jsonOutput bool
		createJob  bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run one trend discovery pass and show the ranked topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(jsonOutput, createJob)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&createJob, "create-job", false, "create and run a video job for the selected topic")
	return cmd
}

func jobsCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent video jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(limit, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max jobs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func retryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Restart a failed job from scratch as a new job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetry(args[0])
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
