package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pgprelay/internal/cryptographic/pgp"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen [username]",
		Short: "Generate a PGP key pair for a username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			pub, priv, err := pgp.GenerateKeyPair(name)
			if err != nil {
				return err
			}
			if err := keyring.Save(name, pub, priv); err != nil {
				return err
			}

			fmt.Printf("Key pair for %s written to %s\n", name, keyDir)
			return nil
		},
	}
}
