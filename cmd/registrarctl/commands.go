package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer c.close()

		records, err := c.svc.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range records {
			name, _ := e.GetString("name")
			kind, _ := e.GetString("kind")
			fmt.Fprintf(c.out, "%-8s %-10s %s\n", e.ID, kind, name)
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer c.close()

		e, err := c.svc.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printEntity(c.out, e)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <id> field=value...",
	Short: "Change fields on a record",
	Long: `Change fields on a record through a change session.

Values "true" and "false" are stored as booleans, everything else as text.
An empty value ("notes=") removes the field.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		assignments, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}

		c, err := openConsole(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer c.close()

		if err := c.controller.Load(cmd.Context(), args[0]); err != nil {
			return err
		}
		cand := c.controller.Session().Original()
		applyAssignments(&cand, assignments)

		o, err := c.controller.Submit(cmd.Context(), cand)
		if err != nil {
			return err
		}
		switch o.Kind {
		case types.OutcomeCommitted:
			return nil
		case types.OutcomeAborted:
			if o.Reason == "user cancelled" {
				return nil
			}
		}
		return fmt.Errorf("%s not saved: %s", args[0], o.Kind)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Permanently delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer c.close()

		deleted, err := c.controller.DeleteRecord(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if deleted {
			fmt.Fprintf(c.out, "Deleted %s.\n", args[0])
		}
		return nil
	},
}

var notificationStatus string

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List queued notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer c.close()

		tasks, err := c.queue.List(cmd.Context(), types.NotificationStatus(notificationStatus))
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Fprintf(c.out, "%s  %-7s %-8s %-28s %s\n", t.ID, t.Status, t.EntityID, t.Target, t.Subject)
		}
		return nil
	},
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Dispatch every pending notification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer c.close()

		sum, err := c.dispatcher.Flush(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Notifications: %d sent, %d failed\n", sum.Sent, sum.Failed)
		return nil
	},
}

func init() {
	notificationsCmd.Flags().StringVar(&notificationStatus, "status", "", "filter by status (pending|sent|failed)")
	rootCmd.AddCommand(listCmd, getCmd, setCmd, deleteCmd, notificationsCmd, flushCmd)
}

type assignment struct {
	field string
	value any // nil removes the field
}

func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, a := range args {
		name, raw, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected field=value, got %q", a)
		}
		if name == "id" {
			return nil, fmt.Errorf("id cannot be changed")
		}

		var v any
		switch raw {
		case "":
			v = nil
		case "true":
			v = true
		case "false":
			v = false
		default:
			v = raw
		}
		out = append(out, assignment{field: name, value: v})
	}
	return out, nil
}

func applyAssignments(e *types.Entity, as []assignment) {
	for _, a := range as {
		if a.value == nil {
			e.Delete(a.field)
			continue
		}
		e.Set(a.field, a.value)
	}
}
