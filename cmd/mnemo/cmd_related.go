package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-graph/mnemo/internal/models"
)

func printSubgraph(sub models.Subgraph, outputJSON bool) error {
	if outputJSON {
		out, err := json.MarshalIndent(sub, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if len(sub.Entities) == 0 {
		fmt.Println("No related entities found.")
		return nil
	}

	fmt.Printf("Entities (%d):\n", len(sub.Entities))
	for i := range sub.Entities {
		e := &sub.Entities[i]
		fmt.Printf("  %-40s  %s\n", e.Name, strings.Join(e.Labels, ","))
	}
	fmt.Printf("Relationships (%d):\n", len(sub.Relationships))
	for i := range sub.Relationships {
		r := &sub.Relationships[i]
		fmt.Printf("  %s -[%s]-> %s\n", r.From, r.Type, r.To)
	}
	return nil
}

func relatedCmd() *cobra.Command {
	var depth int
	var relType string
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "related <name>",
		Short: "Walk outbound relationships from an entity and show the reachable subgraph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("related: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			sub, err := svc.FindRelatedEntities(ctx, args[0], depth, relType)
			if err != nil {
				return fmt.Errorf("related: %w", err)
			}

			return printSubgraph(sub, outputJSON)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 2, "traversal depth in hops (1-5)")
	cmd.Flags().StringVar(&relType, "type", "", "only follow relationships of this type")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}

func metaCmd() *cobra.Command {
	var relType string
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Show the subgraph reachable from the graph root",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("meta: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			sub, err := svc.GetGraphMeta(ctx, relType)
			if err != nil {
				return fmt.Errorf("meta: %w", err)
			}

			return printSubgraph(sub, outputJSON)
		},
	}

	cmd.Flags().StringVar(&relType, "type", "", "only follow relationships of this type")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}
