package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/plaenen/bidibip/pkg/credentials"
	"github.com/spf13/cobra"
)

func newSealTokenCmd() *cobra.Command {
	var keeperURL, file string
	cmd := &cobra.Command{
		Use:   "seal-token",
		Short: "Encrypt the gateway token read from stdin into a secret file",
		Long: `Reads the token from the first line of stdin and writes it encrypted with
the given secrets keeper. Point BIDIBIP_TOKEN_SECRET_URL and BIDIBIP_TOKEN_FILE
at the same keeper and file to use it.

Example:
  echo "$TOKEN" | bidibip seal-token --keeper base64key://... --file token.enc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read token: %w", err)
				}
				return errors.New("no token on stdin")
			}
			token := strings.TrimSpace(scanner.Text())

			if err := credentials.Seal(cmd.Context(), keeperURL, file, &credentials.Credentials{Token: token}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sealed token written to %s\n", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&keeperURL, "keeper", "", "secrets keeper URL (base64key://, awskms://, ...)")
	cmd.Flags().StringVar(&file, "file", "", "output file")
	_ = cmd.MarkFlagRequired("keeper")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
