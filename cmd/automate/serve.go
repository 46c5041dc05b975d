package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"automate/internal/app"
	"automate/internal/config"
	"automate/internal/server"
)

// loadConfig reads the workspace config, or the file named by --config.
// Storage paths in the file are relative to the workspace.
func loadConfig(cfgPath string) (*config.Config, error) {
	workspace := viper.GetString("workspace")
	var (
		cfg *config.Config
		err error
	)
	if cfgPath != "" {
		cfg, err = config.FromFile(cfgPath)
	} else {
		cfg, err = config.LoadOptional(workspace)
	}
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.Storage.Workspace) {
		cfg.Storage.Workspace = filepath.Join(workspace, cfg.Storage.Workspace)
	}
	if secret := viper.GetString("jwt-secret"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	var addr, cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server and the automation engine host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if bp := viper.GetString("base-path"); bp != "" {
				cfg.Server.BasePath = bp
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := app.NewLogger(cfg, os.Stderr)
			rt, err := app.Bootstrap(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			handler, err := server.New(server.Config{
				Engine:   rt.Engine,
				Events:   rt.Repo,
				BasePath: cfg.Server.BasePath,
				Auth:     server.AuthConfig{JWTSecret: cfg.Auth.JWTSecret},
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving automate API",
				"addr", cfg.Server.Addr,
				"base_path", cfg.Server.BasePath,
				"auth", cfg.Auth.JWTSecret != "",
			)
			fmt.Printf("Serving automate API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (overrides config)")
	cmd.Flags().StringVar(&cfgPath, "config", "", "config file (defaults to automate.yml in the workspace)")
	return cmd
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default automate.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("")
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret != "" {
				cfg.Auth.JWTSecret = "***"
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate automate.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"valid": true})
			}
			fmt.Println("config is valid")
			return nil
		},
	})
	return cfgCmd
}

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("")
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("no JWT secret configured (auth.jwt_secret or AUTOMATE_JWT_SECRET)")
			}
			now := time.Now()
			claims := jwt.RegisteredClaims{
				Subject:   subject,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			}
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.JWTSecret))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"token": signed, "expires_at": claims.ExpiresAt.Time})
			}
			fmt.Println(signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "local-user", "actor recorded on changes")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
