package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"otcextensions/cli/pkg/client"
	"otcextensions/cli/pkg/config"
	"otcextensions/cli/pkg/output"
	baseconf "otcextensions/core/config"
	"otcextensions/core/sdkutils"
)

const (
	exitError = 1
	exitUsage = 2
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "otc",
	Short: "Open Telekom Cloud extensions CLI",
	Long: `A command-line interface for Open Telekom Cloud services that are not
covered by the generic OpenStack tooling: the search service certificate and
the cloud trace service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := output.GetFormatFromCmd(cmd); err != nil {
			return &usageError{err}
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.Log.ConfigureZerolog()
		baseconf.UseConsoleWriter(cmd.ErrOrStderr())
		return nil
	},
}

// usageError marks errors caused by invalid command line input
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var usage *usageError
	if errors.As(err, &usage) || sdkutils.IsInvalidArgumentError(err) {
		return exitUsage
	}
	return exitError
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.otc/config.yaml)")
	flags.String("os-auth-url", "", "identity service URL (env OS_AUTH_URL)")
	flags.String("os-username", "", "user name (env OS_USERNAME)")
	flags.String("os-password", "", "user password (env OS_PASSWORD)")
	flags.String("os-user-domain-name", "", "domain of the user (env OS_USER_DOMAIN_NAME)")
	flags.String("os-project-name", "", "project to scope to (env OS_PROJECT_NAME)")
	flags.String("os-project-id", "", "project ID to scope to (env OS_PROJECT_ID)")
	flags.String("os-token", "", "existing token to use instead of a password (env OS_TOKEN)")
	flags.String("os-region-name", "", "region name (env OS_REGION_NAME)")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.String("log-level", "", "log level (trace|debug|info|warn|error|disabled)")
	flags.Bool("debug", false, "enable debug logging")
	output.AddFormatFlag(rootCmd)

	viper.BindPFlag("auth.auth_url", flags.Lookup("os-auth-url"))
	viper.BindPFlag("auth.username", flags.Lookup("os-username"))
	viper.BindPFlag("auth.password", flags.Lookup("os-password"))
	viper.BindPFlag("auth.user_domain_name", flags.Lookup("os-user-domain-name"))
	viper.BindPFlag("auth.project_name", flags.Lookup("os-project-name"))
	viper.BindPFlag("auth.project_id", flags.Lookup("os-project-id"))
	viper.BindPFlag("auth.token", flags.Lookup("os-token"))
	viper.BindPFlag("region_name", flags.Lookup("os-region-name"))
	viper.BindPFlag("insecure", flags.Lookup("insecure"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("debug", flags.Lookup("debug"))
}

// newClient validates the loaded configuration and builds an API client
func newClient() (*client.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return client.New(cfg), nil
}

func newFormatter(cmd *cobra.Command) (*output.Formatter, error) {
	format, err := output.GetFormatFromCmd(cmd)
	if err != nil {
		return nil, err
	}
	f := output.New(format)
	f.SetWriter(cmd.OutOrStdout())
	return f, nil
}

// showResource prints one SDK resource through the column resolver
func showResource(cmd *cobra.Command, resource any, columnMap sdkutils.ColumnMap, invisible []string, formatters sdkutils.Formatters) error {
	f, err := newFormatter(cmd)
	if err != nil {
		return err
	}

	display, attrs, err := sdkutils.ShowColumnsForResource(resource, columnMap, invisible)
	if err != nil {
		return err
	}
	values, err := sdkutils.ItemPropertiesForResource(resource, attrs, formatters)
	if err != nil {
		return err
	}
	return f.ShowOne(display, values)
}
