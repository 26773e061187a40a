package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-familygraph/token"
	"github.com/spf13/cobra"
)

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [permissions...]",
		Short: "Log in through the browser",
		Long: `Open the Family Graph login page in your browser and keep the resulting
session in the local store. Without arguments the configured default
permissions are requested.

Example:
  familygraph login
  familygraph login basic offline_access`,
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	fg, closeClient, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer closeClient()

	perms := args
	if len(perms) == 0 {
		perms = cfg.GetDefaultPermissions()
	}
	if !jsonOutput {
		fmt.Println("Opening your browser to log in...")
	}
	if err := fg.Authorize(cmd.Context(), perms); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]any{
			"status":      "success",
			"message":     "Login successful",
			"expires_at":  formatExpiry(fg.ExpirationDate()),
			"permissions": fg.Permissions(),
		})
		return nil
	}
	okLabel.Println("✓ Login successful")
	fmt.Printf("Token expires at: %s\n", formatExpiry(fg.ExpirationDate()))
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session and revoke its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			fg, closeClient, err := openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			revokeErr := fg.Logout(cmd.Context())
			if jsonOutput {
				kv := map[string]string{"status": "success", "message": "Logged out"}
				if revokeErr != nil {
					kv["warning"] = revokeErr.Error()
				}
				printJSON(kv)
				return nil
			}
			okLabel.Println("✓ Logged out")
			if revokeErr != nil {
				warnLabel.Printf("! Token revocation failed: %v\n", revokeErr)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			fg, closeClient, err := openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			in := token.Introspect(fg.AccessToken())
			status := map[string]any{
				"client_id":   cfg.GetClientID(),
				"logged_in":   fg.IsSessionValid(),
				"expires_at":  formatExpiry(fg.ExpirationDate()),
				"permissions": fg.Permissions(),
				"jwt":         in.IsJWT,
			}
			if in.IsJWT {
				status["subject"] = in.Subject
				status["issuer"] = in.Issuer
				status["scopes"] = in.Scopes
			}
			if jsonOutput {
				printJSON(status)
				return nil
			}

			if fg.IsSessionValid() {
				okLabel.Println("✓ Logged in")
			} else {
				warnLabel.Println("! Not logged in")
			}
			for _, k := range sortedKeys(status) {
				v := status[k]
				if s, ok := v.([]string); ok {
					v = strings.Join(s, " ")
				}
				keyLabel.Printf("%-12s", k)
				fmt.Printf(" %v\n", v)
			}
			return nil
		},
	}
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
