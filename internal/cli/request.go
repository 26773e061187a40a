package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	familygraph "github.com/jrsteele09/go-familygraph"
	"github.com/jrsteele09/go-familygraph/graph"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <graph-path> [key=value...]",
		Short: "Read a Graph object or connection",
		Long: `Send a GET request for a Graph path and print the response.

Example:
  familygraph get me
  familygraph get me/photos limit=5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd.Context(), http.MethodGet, args[0], args[1:])
		},
	}
}

func newPostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post <graph-path> [key=value | key=@file ...]",
		Short: "Publish to a Graph connection",
		Long: `Send a multipart POST request. A value starting with @ uploads that file.

Example:
  familygraph post me/feed message="Hello"
  familygraph post me/photos source=@reunion.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd.Context(), http.MethodPost, args[0], args[1:])
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <graph-path>",
		Short: "Delete a Graph object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd.Context(), http.MethodDelete, args[0], nil)
		},
	}
}

func runRequest(ctx context.Context, method, graphPath string, rawParams []string) error {
	params, err := parseParams(rawParams, method == http.MethodPost || method == http.MethodPut)
	if err != nil {
		return err
	}

	fg, closeClient, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer closeClient()

	if !fg.IsSessionValid() {
		warnLabel.Fprintln(os.Stderr, "! Not logged in, sending the request without an access token")
	}
	result, err := request(ctx, fg, graphPath, params, method)
	if err != nil {
		var gerr *graph.GraphError
		if fgerrors.As(err, &gerr) && gerr.InvalidatesSession() {
			return fmt.Errorf("%w. Run \"familygraph login\" again", err)
		}
		return err
	}
	return printResult(method, graphPath, result)
}

func request(ctx context.Context, fg *familygraph.FamilyGraph, graphPath string, params graph.Params, method string) (any, error) {
	r, err := fg.RequestWithMethod(ctx, graphPath, params, method, nil)
	if err != nil {
		return nil, err
	}
	return r.Wait(ctx)
}

func printResult(method, graphPath string, result any) error {
	if jsonOutput {
		printJSON(result)
		return nil
	}
	fmt.Printf("%s %s\n", methodLabel(method), graphPath)
	if s, ok := result.(string); ok {
		fmt.Println(s)
		return nil
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// parseParams turns key=value arguments into Graph params. key=@path reads
// the file at path, which is only allowed when the request has a body.
func parseParams(args []string, allowFiles bool) (graph.Params, error) {
	params := graph.Params{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", arg)
		}
		if !strings.HasPrefix(value, "@") {
			params[key] = value
			continue
		}
		if !allowFiles {
			return nil, fmt.Errorf("parameter %q: files can only be sent with post", key)
		}
		f, err := readFile(strings.TrimPrefix(value, "@"))
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		params[key] = f
	}
	return params, nil
}

func readFile(path string) (graph.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return graph.File{}, err
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return graph.File{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}
