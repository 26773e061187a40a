package cli

import (
	"fmt"
	"net/url"

	"github.com/jrsteele09/go-familygraph/dialog"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/spf13/cobra"
)

func newDialogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialog <action> [key=value...]",
		Short: "Show a Family Graph dialog in the browser",
		Long: `Open a dialog page for the given action and wait for it to finish.
The parameters the dialog returns are printed.

Example:
  familygraph dialog feed message="Hello"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDialog,
	}
}

func runDialog(cmd *cobra.Command, args []string) error {
	params, err := parseParams(args[1:], false)
	if err != nil {
		return err
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, fmt.Sprint(v))
	}

	fg, closeClient, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer closeClient()

	var returned *url.URL
	cancelled := false
	err = fg.ShowDialog(cmd.Context(), args[0], values, dialog.DelegateFuncs{
		OnCompleteWithURL:    func(u *url.URL) { returned = u },
		OnNotCompleteWithURL: func(u *url.URL) { returned = u },
		OnNotComplete:        func() { cancelled = true },
	})
	if err != nil && !fgerrors.Is(err, fgerrors.ErrDialogDismissed) {
		return err
	}

	result := map[string]any{"action": args[0], "completed": !cancelled}
	if returned != nil {
		q := returned.Query()
		fields := make(map[string]string, len(q))
		for k := range q {
			fields[k] = q.Get(k)
		}
		result["params"] = fields
	}
	if jsonOutput {
		printJSON(result)
		return nil
	}
	if cancelled {
		warnLabel.Printf("! Dialog %s was not completed\n", args[0])
	} else {
		okLabel.Printf("✓ Dialog %s completed\n", args[0])
	}
	if fields, ok := result["params"].(map[string]string); ok {
		for _, k := range sortedKeys(fields) {
			keyLabel.Printf("%-12s", k)
			fmt.Printf(" %s\n", fields[k])
		}
	}
	return nil
}
