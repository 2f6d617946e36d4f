// Package duckpromptctl implements the command line client for the duckprompt
// HTTP API.
package duckpromptctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const sessionHeader = "X-Session-ID"

type Options struct {
	BaseURL    string
	SessionID  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// requestError marks failures that happened after the command line was
// accepted. They exit with status 1; usage errors exit with 2.
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return e.err.Error()
}

func (e *requestError) Unwrap() error {
	return e.err
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	if args == nil {
		args = []string{}
	}
	root := newRootCommand(defaults, stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return 1
		}
		return 2
	}
	return 0
}

type client struct {
	baseURL string
	http    *http.Client
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCommand(defaults Options, stdout, stderr io.Writer) *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)
	c := &client{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "duckpromptctl",
		Short:         "Query uploaded datasets in natural language through the duckprompt API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			c.baseURL = strings.TrimRight(baseURL, "/")
			c.http = defaults.HTTPClient
			if c.http == nil {
				c.http = &http.Client{Timeout: timeout}
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errors.New("a command is required")
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:5000"), "duckprompt API base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", durationOr(defaults.Timeout, 90*time.Second), "HTTP timeout (e.g. 30s)")

	root.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "GET /v1/health",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.get(cmd.Context(), "/v1/health")
			},
		},
		&cobra.Command{
			Use:   "ready",
			Short: "GET /v1/ready",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.get(cmd.Context(), "/v1/ready")
			},
		},
		&cobra.Command{
			Use:   "upload <file>",
			Short: "Upload a dataset file and print its columns",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.upload(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "columns <dataset>",
			Short: "Show the column descriptors of an uploaded dataset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.get(cmd.Context(), "/v1/datasets/"+url.PathEscape(args[0])+"/columns")
			},
		},
		newAskCommand(c, defaults.SessionID),
	)
	return root
}

func newAskCommand(c *client, defaultSession string) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "ask <dataset> <prompt...>",
		Short: "Translate a question into SQL and run it against a dataset",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]string{
				"filename": args[0],
				"prompt":   strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			header := http.Header{"Content-Type": []string{"application/json"}}
			if strings.TrimSpace(sessionID) != "" {
				header.Set(sessionHeader, strings.TrimSpace(sessionID))
			}
			resp, err := c.do(cmd.Context(), http.MethodPost, "/v1/query", header, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			if id := resp.header.Get(sessionHeader); id != "" {
				_, _ = fmt.Fprintf(c.stderr, "session: %s\n", id)
			}
			return c.print(resp)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", defaultSession, "conversation id returned by a previous ask")
	return cmd
}

func (c *client) get(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *client) upload(ctx context.Context, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return &requestError{err: fmt.Errorf("open dataset: %w", err)}
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return &requestError{err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return &requestError{err: fmt.Errorf("read dataset: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return &requestError{err: err}
	}

	header := http.Header{"Content-Type": []string{writer.FormDataContentType()}}
	resp, err := c.do(ctx, http.MethodPost, "/v1/datasets", header, &body)
	if err != nil {
		return err
	}
	return c.print(resp)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *client) do(ctx context.Context, method, path string, header http.Header, body io.Reader) (response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return response{}, &requestError{err: err}
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, &requestError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, &requestError{err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 400 {
		return response{}, &requestError{err: fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}
	return response{status: resp.StatusCode, header: resp.Header, body: raw}, nil
}

func (c *client) print(resp response) error {
	if pretty, ok := prettyJSON(resp.body); ok {
		_, _ = fmt.Fprintln(c.stdout, pretty)
		return nil
	}
	if len(resp.body) > 0 {
		_, _ = fmt.Fprintln(c.stdout, string(resp.body))
	}
	return nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
