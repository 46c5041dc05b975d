package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	automatesdk "automate/sdk/go"
)

func stagingCmd() *cobra.Command {
	s := &cobra.Command{Use: "staging", Short: "Manage staged actions"}
	s.AddCommand(stagingListCmd())
	s.AddCommand(stagingCreateCmd())
	s.AddCommand(&cobra.Command{
		Use:   "show <action-id>",
		Short: "Show a staged action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newClient().GetStagedAction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSONOrTable(a)
		},
	})
	s.AddCommand(&cobra.Command{
		Use:   "delete <action-id>",
		Short: "Discard a staged action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().DeleteStagedAction(cmd.Context(), args[0])
		},
	})
	return s
}

func stagingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			actions, err := newClient().ListStagedActions(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(actions)
			}
			printActions(actions)
			return nil
		},
	}
}

func stagingCreateCmd() *cobra.Command {
	var in automatesdk.StagedActionInput
	var pairs []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Stage an action bound to a service method",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseArgs(pairs)
			if err != nil {
				return err
			}
			in.Args = parsed
			id, err := newClient().CreateStagedAction(cmd.Context(), in)
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
	cmd.Flags().StringVar(&in.Name, "name", "", "action name")
	cmd.Flags().StringVar(&in.Service, "service", "", "service name")
	cmd.Flags().StringVar(&in.Method, "method", "", "method name")
	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "argument key=value (repeatable)")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Change log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail flow change events",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := newClient().Events(cmd.Context(), n, evtType, entityID)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(events)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor", "Payload"})
			for _, e := range events {
				tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityID, e.ActorID, e.Payload})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}
