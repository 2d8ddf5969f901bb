package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/dataconnect/internal/intctl"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "seed":
		fs := flag.NewFlagSet("seed", flag.ExitOnError)
		file := fs.String("f", "", "Path to integration seed YAML file (required)")
		timeout := fs.Duration("timeout", 5*time.Minute, "Timeout for the whole seed run")
		fs.Parse(os.Args[2:])

		if *file == "" {
			fmt.Fprintln(os.Stderr, "Error: -f flag is required")
			fs.Usage()
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()
		exitOnError(intctl.Seed(ctx, *file, os.Stdout))

	case "runs":
		fs := flag.NewFlagSet("runs", flag.ExitOnError)
		file := fs.String("f", "", "Path to run watch YAML file (required)")
		interval := fs.Duration("interval", 0, "Poll interval; 0 prints once and exits")
		fs.Parse(os.Args[2:])

		if *file == "" {
			fmt.Fprintln(os.Stderr, "Error: -f flag is required")
			fs.Usage()
			os.Exit(1)
		}

		exitOnError(intctl.Runs(ctx, *file, *interval, os.Stdout))

	case "tasks":
		fs := flag.NewFlagSet("tasks", flag.ExitOnError)
		apiURL := fs.String("api", "http://localhost:8090", "Integration API base URL")
		integration := fs.String("integration", "", "Integration ID (required)")
		dag := fs.String("dag", "", "Workflow (DAG) ID (required)")
		run := fs.String("run", "", "Run ID (required)")
		fs.Parse(os.Args[2:])

		if *integration == "" || *dag == "" || *run == "" {
			fmt.Fprintln(os.Stderr, "Usage: intctl tasks [-api URL] -integration <id> -dag <workflow-id> -run <run-id>")
			os.Exit(1)
		}

		exitOnError(intctl.Tasks(ctx, *apiURL, os.Getenv(intctl.APIKeyEnv), *integration, *dag, *run, os.Stdout))

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  intctl seed -f <integrations.yaml>
  intctl runs -f <watch.yaml> [-interval 30s]
  intctl tasks [-api URL] -integration <id> -dag <workflow-id> -run <run-id>

Commands:
  seed    Create the integrations in a YAML file, skipping ones that exist
  runs    Show the latest run and history of the watched workflows
  tasks   Show the tasks of a run in dependency order

The API key is read from the YAML file or the DATACONNECT_API_KEY env var.`)
}
