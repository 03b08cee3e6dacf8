package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finitefield.org/tutor-admin/internal/admin/identity"
	"finitefield.org/tutor-admin/internal/admin/login"
)

func newDetectModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect-mode <url>",
		Short: "Print the login mode a URL activates",
		Long: `Prints which mode the login view picks for the given activation URL:
set_new_password for provider email sign-in links, password_sign_in otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := login.DetectMode(args[0], identity.IsSignInWithEmailLink)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), mode)
			return err
		},
	}
}
