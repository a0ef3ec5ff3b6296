package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-graph/mnemo/internal/models"
	"github.com/mnemo-graph/mnemo/internal/store"
)

func relationshipsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relationships",
		Aliases: []string{"rels"},
		Short:   "Manage relationships between entities",
	}

	cmd.AddCommand(
		relationshipsCreateCmd(),
		relationshipsUpdateCmd(),
		relationshipsDeleteCmd(),
		relationshipsFindCmd(),
	)

	return cmd
}

func relationshipsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <from> <type> <to>",
		Short: "Create a directed relationship between two existing entities",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("relationships create: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			created, err := svc.CreateRelationships(ctx, []models.Relationship{{
				From: args[0],
				Type: args[1],
				To:   args[2],
			}})
			if err != nil {
				return fmt.Errorf("relationships create: %w", err)
			}

			r := created[0]
			fmt.Printf("Created %s -[%s]-> %s\n", r.From, r.Type, r.To)
			return nil
		},
	}
}

func relationshipsUpdateCmd() *cobra.Command {
	var setProps []string
	var removeProps []string

	cmd := &cobra.Command{
		Use:   "update <from> <type> <to>",
		Short: "Patch the properties of an existing relationship",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if len(setProps) == 0 && len(removeProps) == 0 {
				return fmt.Errorf("relationships update: give at least one --set or --remove")
			}

			patch := store.RelationshipPatch{RemoveProperties: removeProps}
			if len(setProps) > 0 {
				patch.Properties = make(map[string]models.Value, len(setProps))
				for _, kv := range setProps {
					key, value, ok := strings.Cut(kv, "=")
					if !ok || key == "" {
						return fmt.Errorf("relationships update: --set wants key=value, got %q", kv)
					}
					patch.Properties[key] = models.StringValue(value)
				}
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("relationships update: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			updated, err := svc.UpdateRelationship(ctx, args[0], args[2], args[1], patch)
			if err != nil {
				return fmt.Errorf("relationships update: %w", err)
			}

			fmt.Printf("Updated %d relationships %s -[%s]-> %s\n", len(updated), args[0], args[1], args[2])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&setProps, "set", nil, "property to set as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&removeProps, "remove", nil, "property key to remove (repeatable)")
	return cmd
}

func relationshipsDeleteCmd() *cobra.Command {
	var from, to, relType string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete relationships matching the given filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if from == "" && to == "" && relType == "" {
				return fmt.Errorf("relationships delete: give at least one of --from, --to, --type")
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("relationships delete: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			count, err := svc.DeleteRelationships(ctx, store.RelationshipSelector{
				From: from,
				To:   to,
				Type: relType,
			})
			if err != nil {
				return fmt.Errorf("relationships delete: %w", err)
			}

			fmt.Printf("Deleted %d relationships.\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source entity name filter")
	cmd.Flags().StringVar(&to, "to", "", "target entity name filter")
	cmd.Flags().StringVar(&relType, "type", "", "relationship type filter")
	return cmd
}

func relationshipsFindCmd() *cobra.Command {
	var from, to, relType string
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find relationships matching the given filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("relationships find: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			rels, err := svc.FindRelationships(ctx, store.RelationshipSelector{
				From: from,
				To:   to,
				Type: relType,
			})
			if err != nil {
				return fmt.Errorf("relationships find: %w", err)
			}

			if len(rels) == 0 {
				fmt.Println("No relationships found.")
				return nil
			}

			if outputJSON {
				out, marshalErr := json.MarshalIndent(rels, "", "  ")
				if marshalErr != nil {
					return fmt.Errorf("relationships find: marshaling JSON: %w", marshalErr)
				}
				fmt.Println(string(out))
				return nil
			}

			for i := range rels {
				fmt.Printf("%s -[%s]-> %s\n", rels[i].From, rels[i].Type, rels[i].To)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source entity name filter")
	cmd.Flags().StringVar(&to, "to", "", "target entity name filter")
	cmd.Flags().StringVar(&relType, "type", "", "relationship type filter")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}
