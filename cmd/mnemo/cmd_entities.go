package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-graph/mnemo/internal/models"
	"github.com/mnemo-graph/mnemo/internal/store"
)

func entitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Manage entities in the memory graph",
	}

	cmd.AddCommand(
		entitiesCreateCmd(),
		entitiesGetCmd(),
		entitiesUpdateCmd(),
		entitiesDeleteCmd(),
		entitiesFindCmd(),
	)

	return cmd
}

func entitiesCreateCmd() *cobra.Command {
	var labels []string
	var observations []string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create one entity with optional labels and observations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("entities create: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			created, err := svc.CreateEntities(ctx, []models.Entity{{
				Name:         args[0],
				Labels:       labels,
				Observations: observations,
			}})
			if err != nil {
				return fmt.Errorf("entities create: %w", err)
			}

			fmt.Printf("Created %s with labels [%s]\n", created[0].Name, strings.Join(created[0].Labels, ", "))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&labels, "label", nil, "label to attach (repeatable)")
	cmd.Flags().StringArrayVar(&observations, "observation", nil, "observation to attach (repeatable)")
	return cmd
}

func entitiesGetCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Retrieve a single entity by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("entities get: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			entity, err := svc.GetEntity(ctx, args[0])
			if err != nil {
				return fmt.Errorf("entities get: %w", err)
			}
			if entity == nil {
				return fmt.Errorf("entities get: entity %s not found", args[0])
			}

			if outputJSON {
				out, marshalErr := json.MarshalIndent(entity, "", "  ")
				if marshalErr != nil {
					return fmt.Errorf("entities get: marshaling JSON: %w", marshalErr)
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("Name:    %s\n", entity.Name)
			fmt.Printf("Labels:  %s\n", strings.Join(entity.Labels, ", "))
			fmt.Printf("Observations (%d):\n", len(entity.Observations))
			for _, o := range entity.Observations {
				fmt.Printf("  - %s\n", truncate(o, 100))
			}
			for k, v := range entity.Properties {
				fmt.Printf("  %s = %s\n", k, v.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}

func entitiesUpdateCmd() *cobra.Command {
	var labels []string

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Replace an entity's labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if len(labels) == 0 {
				return fmt.Errorf("entities update: at least one --label is required")
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("entities update: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			updated, err := svc.UpdateEntity(ctx, args[0], store.EntityPatch{Labels: labels})
			if err != nil {
				return fmt.Errorf("entities update: %w", err)
			}

			fmt.Printf("Updated %s; labels now [%s]\n", updated.Name, strings.Join(updated.Labels, ", "))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&labels, "label", nil, "replacement label (repeatable)")
	return cmd
}

func entitiesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete entities and their relationships",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("entities delete: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			count, err := svc.DeleteEntities(ctx, args)
			if err != nil {
				return fmt.Errorf("entities delete: %w", err)
			}

			fmt.Printf("Deleted %d of %d entities.\n", count, len(args))
			return nil
		},
	}
}

func entitiesFindCmd() *cobra.Command {
	var matchAll bool
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "find <label>...",
		Short: "Find entities by label",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("entities find: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			mode := store.MatchAny
			if matchAll {
				mode = store.MatchAll
			}

			svc := newService(st, logger)
			entities, err := svc.FindEntitiesByLabels(ctx, args, mode)
			if err != nil {
				return fmt.Errorf("entities find: %w", err)
			}

			if len(entities) == 0 {
				fmt.Println("No entities found.")
				return nil
			}

			if outputJSON {
				out, marshalErr := json.MarshalIndent(entities, "", "  ")
				if marshalErr != nil {
					return fmt.Errorf("entities find: marshaling JSON: %w", marshalErr)
				}
				fmt.Println(string(out))
				return nil
			}

			for i := range entities {
				e := &entities[i]
				fmt.Printf("%-40s  %-30s  %d observations\n", e.Name, strings.Join(e.Labels, ","), len(e.Observations))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&matchAll, "all", false, "require all labels instead of any")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}
