package cli

import (
	"fmt"

	"github.com/jrsteele09/go-familygraph/internal/config"
	"github.com/spf13/cobra"
)

var cfg config.Config

func defaultConfigPath() (string, error) {
	return config.DefaultPath()
}

func loadConfig(file string) error {
	c, _, err := config.Load(file)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// newConfigCmd creates and returns the config command and its subcommands
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or show the familygraph configuration",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	v := config.Defaults()
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file",
		Long: `Write a configuration file with the app's client id and optional overrides.

Example:
  familygraph config init --client-id 1234 --redirect-port 53682`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v.ClientID == "" {
				return fmt.Errorf("--client-id is required")
			}
			if err := config.Save(configFile, v); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]string{"status": "success", "config_file": configFile})
				return nil
			}
			okLabel.Println("✓ Configuration written")
			fmt.Printf("Config file: %s\n", configFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&v.ClientID, "client-id", "", "Client id of the registered app")
	cmd.Flags().StringVar(&v.URLSchemeSuffix, "url-scheme-suffix", "", "Suffix distinguishing apps that share a client id")
	cmd.Flags().IntVar(&v.RedirectPort, "redirect-port", 0, "Loopback port for login redirects (0 picks a free port)")
	cmd.Flags().StringVar(&v.IssuerURL, "issuer", "", "Issuer URL for endpoint discovery")
	cmd.Flags().StringVar(&v.GraphURL, "graph-url", v.GraphURL, "Graph API base URL")
	cmd.Flags().StringVar(&v.DialogURL, "dialog-url", v.DialogURL, "Dialog base URL")
	cmd.Flags().StringVar(&v.StorePath, "store-path", "", "Session store location")
	cmd.Flags().StringSliceVar(&v.Permissions, "permissions", v.Permissions, "Permissions requested by default at login")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(configFile); err != nil {
				return err
			}
			effective := map[string]any{
				"config_file":       configFile,
				"client_id":         cfg.GetClientID(),
				"url_scheme_suffix": cfg.GetURLSchemeSuffix(),
				"redirect_port":     cfg.GetRedirectPort(),
				"graph_url":         cfg.GetGraphURL(),
				"dialog_url":        cfg.GetDialogURL(),
				"auth_url":          cfg.GetAuthURL(),
				"token_url":         cfg.GetTokenURL(),
				"revoke_url":        cfg.GetRevokeURL(),
				"issuer_url":        cfg.GetIssuerURL(),
				"permissions":       cfg.GetDefaultPermissions(),
				"store_path":        cfg.GetStorePath(),
			}
			if jsonOutput {
				printJSON(effective)
				return nil
			}
			for _, k := range sortedKeys(effective) {
				keyLabel.Printf("%-18s", k)
				fmt.Printf(" %v\n", effective[k])
			}
			return nil
		},
	}
}
