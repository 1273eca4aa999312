package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"otcextensions/core/sdkutils"
)

var cssCmd = &cobra.Command{
	Use:   "css",
	Short: "Cloud Search Service commands",
}

var cssCertCmd = &cobra.Command{
	Use:   "cert",
	Short: "Manage the HTTPS certificate of search clusters",
}

var certOut string

var certDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the HTTPS certificate file of the server",
	Long: `Download the HTTPS certificate shared by the search clusters of the project.
The output file is overwritten if it already exists.`,
	Args: cobra.NoArgs,
	RunE: runCertDownload,
}

// certColumns has no renames; the certificate is written, not shown
var certColumns sdkutils.ColumnMap

func runCertDownload(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	cert, err := c.CSS().GetCertificate(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to download certificate: %w", err)
	}

	_, attrs, err := sdkutils.ShowColumnsForResource(cert, certColumns, nil)
	if err != nil {
		return err
	}
	if !slices.Contains(attrs, "cert_base64") {
		return fmt.Errorf("certificate missing from response")
	}

	data, err := cert.Decode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(certOut, data, 0o644); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	log.Info().Str("file", certOut).Int("bytes", len(data)).Msg("Certificate saved")
	return nil
}

func init() {
	rootCmd.AddCommand(cssCmd)
	cssCmd.AddCommand(cssCertCmd)
	cssCertCmd.AddCommand(certDownloadCmd)

	certDownloadCmd.Flags().StringVar(&certOut, "out", "", "name of the output file where the certificate will be saved")
	certDownloadCmd.MarkFlagRequired("out")
}
