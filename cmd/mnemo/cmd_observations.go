package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemo-graph/mnemo/internal/models"
)

func observationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "observations",
		Aliases: []string{"obs"},
		Short:   "Edit the observation notes attached to an entity",
	}

	cmd.AddCommand(
		observationsSetCmd(),
		observationsAddCmd(),
		observationsRemoveCmd(),
		observationsClearCmd(),
	)

	return cmd
}

func printObservations(e *models.Entity) {
	fmt.Printf("%s now has %d observations:\n", e.Name, len(e.Observations))
	for _, o := range e.Observations {
		fmt.Printf("  - %s\n", truncate(o, 100))
	}
}

func observationsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <observation>...",
		Short: "Replace an entity's observations wholesale",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("observations set: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			updated, err := svc.SetObservations(ctx, args[0], args[1:])
			if err != nil {
				return fmt.Errorf("observations set: %w", err)
			}

			printObservations(updated)
			return nil
		},
	}
}

func observationsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <observation>...",
		Short: "Append observations to an entity",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("observations add: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			updated, err := svc.AddObservations(ctx, args[0], args[1:])
			if err != nil {
				return fmt.Errorf("observations add: %w", err)
			}

			printObservations(updated)
			return nil
		},
	}
}

func observationsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name> <observation>...",
		Short: "Remove all occurrences of the given observations",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("observations remove: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			updated, err := svc.RemoveObservations(ctx, args[0], args[1:])
			if err != nil {
				return fmt.Errorf("observations remove: %w", err)
			}

			printObservations(updated)
			return nil
		},
	}
}

func observationsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <name>",
		Short: "Remove every observation from an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("observations clear: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			updated, err := svc.RemoveAllObservations(ctx, args[0])
			if err != nil {
				return fmt.Errorf("observations clear: %w", err)
			}

			fmt.Printf("Cleared observations on %s.\n", updated.Name)
			return nil
		},
	}
}
