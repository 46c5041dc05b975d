package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"automate/internal/config"
	automatesdk "automate/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "automate",
	Short: "Automate control plane CLI",
	Long: `Automate assembles flows out of actions bound to service methods and hands them
to an automation engine to run.
- Staging: actions are created in a staging area first, bound to a service method with arguments.
- Flows: ordered lists of actions plus metadata (tags, triggers, owner); attaching moves a staged action into a flow.
- Engine: the automation engine exposes services and methods, and runs dispatched flows in the background.
- Event log: every flow change is recorded, view with 'automate log tail'.
Run 'automate serve' in a workspace, then drive it with the other commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.LoadEnv(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("AUTOMATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("server", "http://127.0.0.1:8080", "API server URL")
	rootCmd.PersistentFlags().String("base-path", "", "API base path (defaults to the config value or /automate)")
	rootCmd.PersistentFlags().String("token", "", "bearer token for the API")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("base-path", rootCmd.PersistentFlags().Lookup("base-path"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(engineCmd())
	rootCmd.AddCommand(serviceCmd())
	rootCmd.AddCommand(methodCmd())
	rootCmd.AddCommand(flowCmd())
	rootCmd.AddCommand(stagingCmd())
	rootCmd.AddCommand(logCmd())
}

// --- helpers ---

func newClient() *automatesdk.Client {
	c := automatesdk.New(viper.GetString("server"))
	if bp := viper.GetString("base-path"); bp != "" {
		c.BasePath = bp
	}
	c.BearerToken = viper.GetString("token")
	return c
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseArgs turns key=value pairs into a map. Values that parse as JSON keep
// their JSON type, everything else stays a string.
func parseArgs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	res := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid arg %q, expected key=value", p)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			res[k] = decoded
		} else {
			res[k] = v
		}
	}
	return res, nil
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
