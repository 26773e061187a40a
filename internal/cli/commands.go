// Package cli implements the familygraph command line tool.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/jrsteele09/go-familygraph/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
	storePath  string
	verbose    bool
)

// version is set at build time with -ldflags "-X .../internal/cli.version=..."
var version = "v0.1.0-dev"

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)
var warnLabel = color.New(color.FgYellow)
var keyLabel = color.New(color.FgCyan)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "familygraph [command] [flags]",
	Short: "Family Graph CLI - log in and call the Family Graph API from the command line",
	Long: `Family Graph CLI logs in through your browser and keeps the session in an
encrypted local store, so later commands can call the Graph API as you.

Examples:
  # Create a configuration for your app
  familygraph config init --client-id 1234

  # Log in, asking for extra permissions
  familygraph login basic offline_access

  # Read your profile
  familygraph get me fields=name,gender

  # Upload a photo
  familygraph post me/photos message="At the reunion" source=@reunion.jpg`,
	PersistentPreRunE: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	// Set up persistent flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&storePath, "store", "", "", "Path to the session store to override the configured one")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log SDK activity to stderr")

	// Add commands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newPostCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newDialogCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	// Ctrl-C cancels a pending login or dialog instead of killing the process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if jsonOutput {
			printJSON(map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents sets up logging and loads the configuration before command execution
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		var err error
		if configFile, err = defaultConfigPath(); err != nil {
			return err
		}
	}

	needsConfig := true
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" || c.Name() == "version" {
			needsConfig = false
			break
		}
	}
	if !needsConfig {
		logging.Init("error", "", os.Stderr)
		return nil
	}

	if err := loadConfig(configFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found. Configure with \"familygraph config init --client-id <id>\" first", configFile)
		}
		return err
	}
	logging.Init(cfg.GetLogLevel(), cfg.GetEnv(), os.Stderr)
	if !verbose {
		logging.Silence()
	}
	return nil
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of familygraph",
		Run: func(cmd *cobra.Command, args []string) {
			configPath := configFile
			if configPath == "" {
				configPath = "unknown"
			}

			if jsonOutput {
				printJSON(map[string]string{
					"version":     version,
					"config_file": configPath,
				})
				return
			}
			displayAppname("Family Graph")
			cmd.Printf("familygraph CLI %s\n", version)
			cmd.Printf("Config file: %s\n", configPath)
		},
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

// printJSON prints the given value as JSON to stdout
func printJSON(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}
