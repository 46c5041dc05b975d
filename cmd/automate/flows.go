package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	automatesdk "automate/sdk/go"
)

func flowCmd() *cobra.Command {
	f := &cobra.Command{Use: "flow", Short: "Manage flows"}
	f.AddCommand(flowListCmd())
	f.AddCommand(flowCreateCmd())
	f.AddCommand(flowShowCmd())
	f.AddCommand(flowUpdateCmd())
	f.AddCommand(flowDeleteCmd())
	f.AddCommand(flowRunCmd())
	f.AddCommand(flowActionCmd())
	return f
}

func flowListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, err := newClient().ListFlows(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(flows)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Name", "Owner", "Active", "Actions", "Tags", "Triggers"})
			for _, f := range flows {
				tw.AppendRow(table.Row{f.ID, f.Name, f.Owner, f.Active, len(f.Actions), joinOrDash(f.Tags), joinOrDash(f.Triggers)})
			}
			tw.Render()
			return nil
		},
	}
}

func flowCreateCmd() *cobra.Command {
	var in automatesdk.FlowInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := newClient().CreateFlow(cmd.Context(), in)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"id": id})
			}
			fmt.Println(id)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.ID, "id", "", "flow id (generated when empty)")
	cmd.Flags().StringVar(&in.Name, "name", "", "flow name")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.Owner, "owner", "", "owner (defaults to the caller)")
	cmd.Flags().StringVar(&in.Logo, "logo", "", "logo reference")
	cmd.Flags().BoolVar(&in.Active, "active", false, "mark the flow active")
	cmd.Flags().StringArrayVar(&in.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringArrayVar(&in.Triggers, "trigger", nil, "trigger event (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func flowShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <flow-id>",
		Short: "Show a flow with its actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newClient().GetFlow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(f)
			}
			fmt.Printf("%s  %s  owner=%s active=%t tags=%s triggers=%s\n", f.ID, f.Name, f.Owner, f.Active, joinOrDash(f.Tags), joinOrDash(f.Triggers))
			printActions(f.Actions)
			return nil
		},
	}
}

func flowUpdateCmd() *cobra.Command {
	var name, description, owner, logo string
	var active bool
	var tags, triggers []string
	cmd := &cobra.Command{
		Use:   "update <flow-id>",
		Short: "Update flow metadata; --tag and --trigger replace the whole set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch automatesdk.FlowPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("owner") {
				patch.Owner = &owner
			}
			if flags.Changed("logo") {
				patch.Logo = &logo
			}
			if flags.Changed("active") {
				patch.Active = &active
			}
			if flags.Changed("tag") {
				patch.Tags = &tags
			}
			if flags.Changed("trigger") {
				patch.Triggers = &triggers
			}
			f, err := newClient().UpdateFlow(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return printJSONOrTable(f)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "flow name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&owner, "owner", "", "owner")
	cmd.Flags().StringVar(&logo, "logo", "", "logo reference")
	cmd.Flags().BoolVar(&active, "active", false, "active flag")
	cmd.Flags().StringArrayVar(&tags, "tag", []string{}, "tag (repeatable)")
	cmd.Flags().StringArrayVar(&triggers, "trigger", []string{}, "trigger event (repeatable)")
	return cmd
}

func flowDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <flow-id>",
		Short: "Destroy a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().DeleteFlow(cmd.Context(), args[0])
		},
	}
}

func flowRunCmd() *cobra.Command {
	var pairs []string
	var argsJSON string
	cmd := &cobra.Command{
		Use:   "run <flow-id>",
		Short: "Dispatch a flow run without waiting for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runArgs, err := parseArgs(pairs)
			if err != nil {
				return err
			}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &runArgs); err != nil {
					return fmt.Errorf("invalid --args-json: %w", err)
				}
			}
			if err := newClient().RunFlow(cmd.Context(), args[0], runArgs); err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"flow_id": args[0], "status": "dispatched"})
			}
			fmt.Println("dispatched", args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "run argument key=value (repeatable)")
	cmd.Flags().StringVar(&argsJSON, "args-json", "", "run arguments as a JSON object")
	return cmd
}

func flowActionCmd() *cobra.Command {
	a := &cobra.Command{Use: "action", Short: "Manage the actions of a flow"}
	a.AddCommand(&cobra.Command{
		Use:   "attach <flow-id> <staged-action-id>",
		Short: "Move a staged action to the end of a flow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newClient().AttachAction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printFlowActions(f)
		},
	})
	a.AddCommand(&cobra.Command{
		Use:   "move <flow-id> <action-id> <position>",
		Short: "Move an action to a position, clamped to the list bounds",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[2], err)
			}
			f, err := newClient().MoveAction(cmd.Context(), args[0], args[1], pos)
			if err != nil {
				return err
			}
			return printFlowActions(f)
		},
	})
	a.AddCommand(&cobra.Command{
		Use:   "remove <flow-id> <action-id>",
		Short: "Remove an action from a flow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newClient().RemoveAction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printFlowActions(f)
		},
	})
	a.AddCommand(&cobra.Command{
		Use:   "show <flow-id> <action-id>",
		Short: "Show an action attached to a flow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := newClient().GetFlowAction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSONOrTable(act)
		},
	})
	return a
}

func printFlowActions(f automatesdk.Flow) error {
	if viper.GetBool("json") {
		return printJSON(f)
	}
	printActions(f.Actions)
	return nil
}

func printActions(actions []automatesdk.Action) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"#", "ID", "Name", "Service", "Method", "Args"})
	for i, a := range actions {
		args, _ := json.Marshal(a.Args)
		tw.AppendRow(table.Row{i, a.ID, a.Name, a.Method.Service, a.Method.Method, string(args)})
	}
	tw.Render()
}
