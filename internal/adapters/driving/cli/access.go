package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	accessUser string
	accessApp  string
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Check whether a user granted an app access",
	Long:  `Prints "granted" when the app is in fake mode or a token is stored for the user, "denied" otherwise.`,
	Args:  cobra.NoArgs,
	RunE:  runAccess,
}

func init() {
	accessCmd.Flags().StringVar(&accessUser, "user", "", "portal user")
	accessCmd.Flags().StringVar(&accessApp, "app", "", "app identity (default from config)")
	_ = accessCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(accessCmd)
}

func runAccess(cmd *cobra.Command, _ []string) error {
	if accessChecker == nil {
		return errors.New("access service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	granted, err := accessChecker.IsAccessGranted(ctx, accessUser, accessApp)
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}
	if granted {
		cmd.Println("granted")
	} else {
		cmd.Println("denied")
	}
	return nil
}
