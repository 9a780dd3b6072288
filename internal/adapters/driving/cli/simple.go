package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

var (
	simpleURI           string
	simpleMethod        string
	simpleAuthenticated bool
	simpleBody          string
	simpleFixture       string
	simpleUser          string
	simpleApp           string
	simpleAccessToken   string
	simpleRefresh       string
	simplePromptToken   bool
)

var simpleCmd = &cobra.Command{
	Use:   "simple",
	Short: "Issue a single request against a URI",
	Long: `Sends one HTTP request without pagination and prints the resulting page
as a JSON line. Use --authenticated to attach the user's bearer token.`,
	Args: cobra.NoArgs,
	RunE: runSimple,
}

func init() {
	f := simpleCmd.Flags()
	f.StringVar(&simpleURI, "uri", "", "absolute URI to call")
	f.StringVar(&simpleMethod, "method", http.MethodGet, "HTTP method")
	f.BoolVar(&simpleAuthenticated, "authenticated", false, "attach the bearer token")
	f.StringVar(&simpleBody, "body", "", "request body (JSON or plain text)")
	f.StringVar(&simpleFixture, "fixture", "", "fixture name used in fake mode")
	addCredentialFlags(simpleCmd, &simpleUser, &simpleApp, &simpleAccessToken, &simpleRefresh, &simplePromptToken)
	_ = simpleCmd.MarkFlagRequired("uri")
	rootCmd.AddCommand(simpleCmd)
}

func runSimple(cmd *cobra.Command, _ []string) error {
	if proxyFactory == nil {
		return errors.New("proxy service not configured")
	}

	desc := domain.RequestDescriptor{
		URI:           simpleURI,
		HTTPMethod:    strings.ToUpper(simpleMethod),
		Authenticated: simpleAuthenticated,
		FixtureName:   simpleFixture,
	}
	if simpleBody != "" {
		if json.Valid([]byte(simpleBody)) {
			desc.Body = json.RawMessage(simpleBody)
		} else {
			desc.Body = simpleBody
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	proxy, err := newProxy(ctx, cmd, simpleUser, simpleApp, simpleAccessToken, simpleRefresh, simplePromptToken)
	if err != nil {
		return err
	}

	page := proxy.SimpleRequest(ctx, desc)
	if err := printPage(cmd.OutOrStdout(), page); err != nil {
		return err
	}
	if page.IsError {
		return fmt.Errorf("request failed: %w", page.Err)
	}
	return nil
}
