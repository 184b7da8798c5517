package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pgprelay/internal/cryptographic/pgp"
)

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send [from] [to] [message...]",
		Short: "Send a message and confirm authorship",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := args[0], args[1]
			body := strings.Join(args[2:], " ")

			priv, err := keyring.Private(from)
			if err != nil {
				return err
			}

			sealed, err := api.Send(from, to, body)
			if err != nil {
				return err
			}

			// Decrypting the returned token and echoing it back is what
			// proves we hold the sender's private key.
			token, err := pgp.Decrypt(priv, sealed)
			if err != nil {
				return err
			}
			if err := api.ConfirmSend(token); err != nil {
				return err
			}

			fmt.Printf("Sent to %s\n", to)
			return nil
		},
	}
}
