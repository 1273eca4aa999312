package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"otcextensions/core/sdkutils"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Identity token commands",
}

var tokenColumns = sdkutils.ColumnMap{
	{SDKAttr: "id", DisplayAttr: "token"},
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a new token",
	Long: `Authenticate with the configured credentials and print the issued token.
The password is prompted for when none is configured and stdin is a terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.Password == "" && cfg.Auth.Token == "" && term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			cfg.Auth.Password = string(password)
		}
		if cfg.Auth.Token == "" && cfg.Auth.Password == "" {
			return fmt.Errorf("password is required (set --os-password or OS_PASSWORD)")
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		token, err := c.Token(cmd.Context())
		if err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		return showResource(cmd, token, tokenColumns, []string{"project_name", "user_name"}, nil)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
}
