package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the graph database",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				fmt.Printf("Neo4j: FAIL (%v)\n", err)
				return fmt.Errorf("health check failed")
			}
			defer func() { _ = st.Close(ctx) }()

			if err := st.Ping(ctx); err != nil {
				fmt.Printf("Neo4j: FAIL (%v)\n", err)
				return fmt.Errorf("health check failed")
			}

			fmt.Println("Neo4j: OK")
			return nil
		},
	}
}
