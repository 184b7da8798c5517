package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func keyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key [username]",
		Short: "Fetch a user's public key from the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := api.Key(args[0])
			if err != nil {
				return err
			}

			fmt.Println(key)
			return nil
		},
	}
}
