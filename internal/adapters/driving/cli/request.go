package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driving"
)

var (
	reqAPI          string
	reqVersion      string
	reqResource     string
	reqMethod       string
	reqParams       []string
	reqPageLimit    int
	reqUser         string
	reqApp          string
	reqBody         string
	reqFixture      string
	reqAccessToken  string
	reqRefreshToken string
	reqPromptToken  bool
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Issue a paginated API request",
	Long: `Resolves a discovery method and follows its page tokens, printing every
page as one JSON line. The sequence stops after the last page, the page
limit or the first error page.

Example:
  campusbridge request --api drive --version v3 --resource files --method list \
    --param q="trashed=false" --page-limit 2 --user 42`,
	Args: cobra.NoArgs,
	RunE: runRequest,
}

func init() {
	f := requestCmd.Flags()
	f.StringVar(&reqAPI, "api", "", "API name (e.g. drive)")
	f.StringVar(&reqVersion, "version", "", "API version (e.g. v3)")
	f.StringVar(&reqResource, "resource", "", "resource path, dotted for nested resources")
	f.StringVar(&reqMethod, "method", "", "resource method (e.g. list)")
	f.StringArrayVar(&reqParams, "param", nil, "request parameter as key=value (repeatable)")
	f.IntVar(&reqPageLimit, "page-limit", 0, "maximum number of pages (0 for no limit)")
	f.StringVar(&reqBody, "body", "", "JSON request body")
	f.StringVar(&reqFixture, "fixture", "", "fixture name used in fake mode")
	addCredentialFlags(requestCmd, &reqUser, &reqApp, &reqAccessToken, &reqRefreshToken, &reqPromptToken)
	_ = requestCmd.MarkFlagRequired("api")
	_ = requestCmd.MarkFlagRequired("version")
	_ = requestCmd.MarkFlagRequired("resource")
	_ = requestCmd.MarkFlagRequired("method")
	rootCmd.AddCommand(requestCmd)
}

func addCredentialFlags(cmd *cobra.Command, user, app, access, refresh *string, prompt *bool) {
	f := cmd.Flags()
	f.StringVar(user, "user", "", "portal user whose stored credentials are used")
	f.StringVar(app, "app", "", "app identity (default from config)")
	f.StringVar(access, "access-token", "", "inline access token")
	f.StringVar(refresh, "refresh-token", "", "inline refresh token")
	f.BoolVar(prompt, "prompt-token", false, "read the inline access token from the terminal")
}

func runRequest(cmd *cobra.Command, _ []string) error {
	if proxyFactory == nil {
		return errors.New("proxy service not configured")
	}

	params, err := parseParams(reqParams)
	if err != nil {
		return err
	}
	desc := domain.RequestDescriptor{
		API:         reqAPI,
		APIVersion:  reqVersion,
		Resource:    reqResource,
		Method:      reqMethod,
		Params:      params,
		PageLimit:   reqPageLimit,
		FixtureName: reqFixture,
	}
	if reqBody != "" {
		if !json.Valid([]byte(reqBody)) {
			return fmt.Errorf("%w: --body is not valid JSON", domain.ErrInvalidInput)
		}
		desc.Body = json.RawMessage(reqBody)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	proxy, err := newProxy(ctx, cmd, reqUser, reqApp, reqAccessToken, reqRefreshToken, reqPromptToken)
	if err != nil {
		return err
	}

	it, err := proxy.Request(ctx, desc)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer it.Stop()

	var last *domain.PageResult
	for it.Next(ctx) {
		last = it.Page()
		if err := printPage(cmd.OutOrStdout(), last); err != nil {
			return err
		}
	}
	if it.StopReason() == domain.StopError && last != nil {
		return fmt.Errorf("request stopped on page %d: %w", last.Index, last.Err)
	}
	return nil
}

func newProxy(ctx context.Context, cmd *cobra.Command, user, app, access, refresh string, prompt bool) (driving.ProxyService, error) {
	if prompt {
		tok, err := readSecret(cmd, "Access token: ")
		if err != nil {
			return nil, err
		}
		access = tok
	}

	opts := driving.ProxyOptions{AppID: app, UserID: user}
	if access != "" || refresh != "" {
		opts.Inline = &domain.InlineCredentials{AccessToken: access, RefreshToken: refresh}
	}
	proxy, err := proxyFactory.NewProxy(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}
	return proxy, nil
}

// parseParams turns key=value flags into ordered parameters. A repeated
// key is sent once per occurrence.
func parseParams(raw []string) ([]domain.Param, error) {
	params := make([]domain.Param, 0, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: parameter %q is not key=value", domain.ErrInvalidInput, kv)
		}
		params = append(params, domain.Param{Key: key, Value: value})
	}
	return params, nil
}

// pageLine is the JSON line printed for each page.
type pageLine struct {
	Index     int             `json:"index"`
	RequestID string          `json:"request_id,omitempty"`
	URL       string          `json:"url,omitempty"`
	Status    int             `json:"status"`
	IsError   bool            `json:"is_error"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func printPage(w io.Writer, page *domain.PageResult) error {
	line := pageLine{
		Index:     page.Index,
		RequestID: page.RequestID,
		URL:       page.URL,
		Status:    page.StatusCode,
		IsError:   page.IsError,
	}
	if page.Err != nil {
		line.Error = page.Err.Error()
	}
	if page.Data != nil {
		data, err := json.Marshal(page.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal page: %w", err)
		}
		line.Data = data
	}
	return json.NewEncoder(w).Encode(line)
}

func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	cmd.PrintErr(prompt)
	defer cmd.PrintErrln()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(cmd.InOrStdin())
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(input), nil
}
