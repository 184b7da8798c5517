package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pgprelay/internal/cryptographic/pgp"
)

func inboxCmd() *cobra.Command {
	var collect bool

	cmd := &cobra.Command{
		Use:   "inbox [username]",
		Short: "List deliverable messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			priv, err := keyring.Private(name)
			if err != nil {
				return err
			}

			deliveries, err := api.Retrieve(name)
			if err != nil {
				return err
			}
			if len(deliveries) == 0 {
				fmt.Println("Inbox empty")
				return nil
			}

			var tokens []string
			for _, d := range deliveries {
				fmt.Printf("%s: %s\n", d.Sender, d.Message)

				if collect {
					token, err := pgp.Decrypt(priv, d.PGPHash)
					if err != nil {
						return err
					}
					tokens = append(tokens, token)
				}
			}

			if collect {
				n, err := api.Delete(tokens)
				if err != nil {
					return err
				}
				fmt.Printf("Collected %d message(s)\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&collect, "collect", false, "confirm collection so the relay can delete the messages")
	return cmd
}
