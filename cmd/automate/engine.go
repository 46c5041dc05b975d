package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	automatesdk "automate/sdk/go"
)

func engineCmd() *cobra.Command {
	e := &cobra.Command{Use: "engine", Short: "Control the automation engine"}
	report := func(running bool) error {
		if viper.GetBool("json") {
			return printJSON(map[string]bool{"running": running})
		}
		if running {
			fmt.Println("engine running")
		} else {
			fmt.Println("engine stopped")
		}
		return nil
	}
	e.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Re-initialize and start the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, err := newClient().StartEngine(cmd.Context())
			if err != nil {
				return err
			}
			return report(running)
		},
	})
	e.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, err := newClient().StopEngine(cmd.Context())
			if err != nil {
				return err
			}
			return report(running)
		},
	})
	e.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the engine is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, err := newClient().EngineRunning(cmd.Context())
			if err != nil {
				return err
			}
			return report(running)
		},
	})
	return e
}

func serviceCmd() *cobra.Command {
	s := &cobra.Command{Use: "service", Short: "Inspect engine services"}
	s.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List services",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := newClient().Services(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(services)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Service", "Methods", "Description"})
			for _, srv := range services {
				names := make([]string, 0, len(srv.Methods))
				for _, m := range srv.Methods {
					names = append(names, m.Name)
				}
				tw.AppendRow(table.Row{srv.Name, joinOrDash(names), srv.Description})
			}
			tw.Render()
			return nil
		},
	})
	return s
}

func methodCmd() *cobra.Command {
	m := &cobra.Command{Use: "method", Short: "Inspect engine methods"}
	m.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the methods of every service",
		RunE: func(cmd *cobra.Command, args []string) error {
			methods, err := newClient().Methods(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(methods)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Service", "Method", "Params", "Description"})
			for _, m := range methods {
				tw.AppendRow(table.Row{m.Service, m.Name, formatParams(m.Params), m.Description})
			}
			tw.Render()
			return nil
		},
	})
	return m
}

func formatParams(params []automatesdk.Param) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := p.Name
		if p.Type != "" {
			s += ":" + p.Type
		}
		if p.Required {
			s += "*"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
