package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnemo-graph/mnemo/internal/memory"
	"github.com/mnemo-graph/mnemo/internal/models"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage task entities in the memory graph",
	}

	cmd.AddCommand(
		tasksCreateCmd(),
		tasksGetCmd(),
		tasksUpdateCmd(),
		tasksDeleteCmd(),
		tasksListCmd(),
	)

	return cmd
}

func printTask(t *models.Task) {
	fmt.Printf("Name:        %s\n", t.Name)
	fmt.Printf("Description: %s\n", t.Properties.Description)
	fmt.Printf("Status:      %s\n", t.Properties.Status)
	fmt.Printf("Priority:    %s\n", t.Properties.Priority)
	fmt.Printf("Type:        %s\n", t.Properties.Type)
	if t.Properties.DueDate != nil {
		fmt.Printf("Due:         %s\n", t.Properties.DueDate.Format("2006-01-02"))
	}
	if len(t.DependsOn) > 0 {
		fmt.Printf("Depends on:  %s\n", strings.Join(t.DependsOn, ", "))
	}
	fmt.Printf("Created:     %s\n", t.Properties.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:     %s\n", t.Properties.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func tasksCreateCmd() *cobra.Command {
	var name, status, priority, taskType, dueDate string
	var dependsOn []string

	cmd := &cobra.Command{
		Use:   "create <description>",
		Short: "Create a task linked under the graph root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			input := memory.TaskInput{
				Name:        name,
				Description: args[0],
				Status:      models.TaskStatus(status),
				Priority:    models.TaskPriority(priority),
				Type:        models.TaskType(taskType),
				DependsOn:   dependsOn,
			}
			if dueDate != "" {
				due, err := time.Parse("2006-01-02", dueDate)
				if err != nil {
					return fmt.Errorf("tasks create: due date must be YYYY-MM-DD: %w", err)
				}
				input.DueDate = &due
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("tasks create: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			tasks, err := svc.CreateTasks(ctx, []memory.TaskInput{input})
			if err != nil {
				return fmt.Errorf("tasks create: %w", err)
			}

			fmt.Printf("Created task %s (%s/%s)\n", tasks[0].Name, tasks[0].Properties.Status, tasks[0].Properties.Priority)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "task name (default: generated task:<uuid>)")
	cmd.Flags().StringVar(&status, "status", "", "status: todo, in_progress, blocked, done, cancelled")
	cmd.Flags().StringVar(&priority, "priority", "", "priority: low, medium, high, critical")
	cmd.Flags().StringVar(&taskType, "type", "", "type: feature, bug, chore, improvement")
	cmd.Flags().StringVar(&dueDate, "due", "", "due date as YYYY-MM-DD")
	cmd.Flags().StringArrayVar(&dependsOn, "depends-on", nil, "task this one depends on (repeatable)")
	return cmd
}

func tasksGetCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Retrieve a single task by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("tasks get: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			task, err := svc.GetTask(ctx, args[0])
			if err != nil {
				return fmt.Errorf("tasks get: %w", err)
			}
			if task == nil {
				return fmt.Errorf("tasks get: task %s not found", args[0])
			}

			if outputJSON {
				out, marshalErr := json.MarshalIndent(task, "", "  ")
				if marshalErr != nil {
					return fmt.Errorf("tasks get: marshaling JSON: %w", marshalErr)
				}
				fmt.Println(string(out))
				return nil
			}

			printTask(task)
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}

func tasksUpdateCmd() *cobra.Command {
	var description, status, priority, dueDate string

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Patch a task's description, status, priority, or due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			var patch memory.TaskPatch
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if status != "" {
				st := models.TaskStatus(status)
				patch.Status = &st
			}
			if priority != "" {
				p := models.TaskPriority(priority)
				patch.Priority = &p
			}
			if dueDate != "" {
				due, err := time.Parse("2006-01-02", dueDate)
				if err != nil {
					return fmt.Errorf("tasks update: due date must be YYYY-MM-DD: %w", err)
				}
				patch.DueDate = &due
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("tasks update: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			task, err := svc.UpdateTask(ctx, args[0], patch)
			if err != nil {
				return fmt.Errorf("tasks update: %w", err)
			}

			printTask(task)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	cmd.Flags().StringVar(&dueDate, "due", "", "new due date as YYYY-MM-DD")
	return cmd
}

func tasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a task and its relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("tasks delete: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			if err := svc.DeleteTask(ctx, args[0]); err != nil {
				return fmt.Errorf("tasks delete: %w", err)
			}

			fmt.Printf("Deleted task %s.\n", args[0])
			return nil
		},
	}
}

func tasksListCmd() *cobra.Command {
	var status string
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("tasks list: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			svc := newService(st, logger)
			tasks, err := svc.ListTasks(ctx, models.TaskStatus(status))
			if err != nil {
				return fmt.Errorf("tasks list: %w", err)
			}

			if len(tasks) == 0 {
				fmt.Println("No tasks found.")
				return nil
			}

			if outputJSON {
				out, marshalErr := json.MarshalIndent(tasks, "", "  ")
				if marshalErr != nil {
					return fmt.Errorf("tasks list: marshaling JSON: %w", marshalErr)
				}
				fmt.Println(string(out))
				return nil
			}

			for i := range tasks {
				t := &tasks[i]
				fmt.Printf("%-42s  %-12s  %-8s  %s\n", t.Name, t.Properties.Status, t.Properties.Priority, truncate(t.Properties.Description, 60))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show tasks with this status")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}
