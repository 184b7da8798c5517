package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pgprelay/internal/cryptographic/pgp"
)

func enterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enter [username]",
		Short: "Register with the relay and prove key possession",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			pub, err := keyring.Public(name)
			if err != nil {
				return err
			}
			priv, err := keyring.Private(name)
			if err != nil {
				return err
			}

			sealed, err := api.Enter(name, pub)
			if err != nil {
				return err
			}

			challenge, err := pgp.Decrypt(priv, sealed)
			if err != nil {
				return err
			}
			if err := api.Verify(challenge); err != nil {
				return err
			}

			fmt.Printf("Registered %s\n", name)
			return nil
		},
	}
}
