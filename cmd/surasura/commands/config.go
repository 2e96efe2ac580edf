package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sant0-9/surasura/internal/config"
	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/llm"
)

const pingTimeout = 15 * time.Second

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration file",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigPathCmd(), newConfigSetCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets hidden",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			red := cfg.Redacted()

			var out []byte
			switch strings.ToLower(format) {
			case "yaml", "yml", "":
				out, err = yaml.Marshal(red)
			case "json":
				out, err = json.MarshalIndent(red, "", "  ")
			default:
				return errors.Mark(errors.Newf("unknown format %q (yaml or json)", format), errors.ErrInvalidRequest)
			}
			if err != nil {
				return errors.Wrap(err, "encode config")
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			if !strings.HasSuffix(string(out), "\n") {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// settableKeys are the keys accepted by "config set", in help order.
var settableKeys = []string{
	"provider", "model", "api_key", "base_url",
	"templates.set", "templates.dir", "templates.language",
	"llm.timeout_seconds", "llm.temperature", "llm.max_tokens",
	"report.title", "report.footer", "report.font_path", "report.output_dir",
	"server.addr", "log.level", "log.file",
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration value",
		Long:  "Set one configuration value in the config file.\n\nKeys: " + strings.Join(settableKeys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// the file alone, so environment credentials are never written out
			cfg, err := config.LoadFile()
			if err != nil {
				return err
			}
			if err := setKey(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return errors.Wrap(err, "save config")
			}
			path, _ := config.ConfigPath()
			shown := args[1]
			if args[0] == "api_key" {
				shown = "********"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], shown, path)
			return nil
		},
	}
}

func setKey(cfg *config.Config, key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "provider":
		if config.GetProvider(value) == nil {
			return errors.Mark(errors.Newf("unknown provider %q", value), errors.ErrInvalidRequest)
		}
		cfg.SetProvider(value)
	case "model":
		cfg.Model = value
	case "api_key":
		cfg.APIKey = value
	case "base_url":
		cfg.BaseURL = value
	case "templates.set":
		cfg.Templates.Set = value
	case "templates.dir":
		cfg.Templates.Dir = value
	case "templates.language":
		cfg.Templates.Language = value
	case "llm.timeout_seconds":
		cfg.LLM.TimeoutSeconds, err = strconv.Atoi(value)
	case "llm.temperature":
		cfg.LLM.Temperature, err = strconv.ParseFloat(value, 64)
	case "llm.max_tokens":
		cfg.LLM.MaxTokens, err = strconv.Atoi(value)
	case "report.title":
		cfg.Report.Title = value
	case "report.footer":
		cfg.Report.Footer = value
	case "report.font_path":
		cfg.Report.FontPath = value
	case "report.output_dir":
		cfg.Report.OutputDir = value
	case "server.addr":
		cfg.Server.Addr = value
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	default:
		err := errors.Mark(errors.Newf("unknown key %q", key), errors.ErrInvalidRequest)
		return errors.WithHintf(err, "keys: %s", strings.Join(settableKeys, ", "))
	}
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "value for %s", key), errors.ErrInvalidRequest)
	}
	return nil
}

func newConfigValidateCmd() *cobra.Command {
	var ping bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the provider credential",
		Long: `Check the configuration and the provider credential. With --ping the
provider is also contacted once to confirm it is reachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireCredential(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (provider %s, model %s, template set %s)\n",
				cfg.Provider, cfg.Model, cfg.Templates.Set)
			if !ping {
				return nil
			}

			provider, err := llm.NewProvider(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
			defer cancel()
			if err := provider.Ping(ctx); err != nil {
				err = errors.Mark(errors.Wrapf(err, "provider %s unreachable", provider.Name()), errors.ErrCompletionFailed)
				return errors.WithHint(err, "check base_url and that the service is running")
			}
			fmt.Fprintf(out, "Provider %s is reachable\n", provider.Name())
			return nil
		},
	}
	cmd.Flags().BoolVar(&ping, "ping", false, "Also contact the provider")
	return cmd
}
