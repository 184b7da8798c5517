package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pgprelay/internal/service/client"
)

var (
	host   string
	keyDir string

	api     *client.Client
	keyring *client.Keyring
)

func Execute() error {
	root := &cobra.Command{
		Use:   "pgprelay-client",
		Short: "Talk to a pgprelay server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if keyDir == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				keyDir = filepath.Join(dir, ".pgprelay")
			}

			var err error
			keyring, err = client.NewKeyring(keyDir)
			if err != nil {
				return err
			}

			api = client.New(host)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&host, "host", "localhost:9090", "relay host:port")
	root.PersistentFlags().StringVar(&keyDir, "keydir", "", "key directory (default ~/.pgprelay)")

	root.AddCommand(keygenCmd(), enterCmd(), keyCmd(), sendCmd(), inboxCmd(), watchCmd())
	return root.Execute()
}
