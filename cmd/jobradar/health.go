package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/velin/jobradar/internal/orchestrator"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.service.Start()
	defer a.service.Stop()

	job := orchestrator.NewJob(orchestrator.JobHealthCheck, orchestrator.MaxPriority)
	handle, err := a.service.Orchestrator().Enqueue(job)
	if err != nil {
		return err
	}
	status, err := a.service.Orchestrator().Wait(ctx, handle)
	if err != nil {
		return err
	}
	if status.State != orchestrator.StateSucceeded {
		return fmt.Errorf("health check failed: %s", status.LastError)
	}

	fmt.Println("OK")
	return nil
}
