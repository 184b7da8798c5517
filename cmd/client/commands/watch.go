package commands

import (
	"encoding/json"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"pgprelay/internal/cryptographic/pgp"
	"pgprelay/internal/model"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [username]",
		Short: "Live inbox: collect messages as they become deliverable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			priv, err := keyring.Private(name)
			if err != nil {
				return err
			}

			conn, err := api.Watch(name)
			if err != nil {
				return err
			}
			defer conn.Close()

			app := tview.NewApplication()
			inbox := tview.NewTextView().
				SetDynamicColors(true).
				SetScrollable(true)
			inbox.SetBorder(true).SetTitle(fmt.Sprintf(" Inbox: %s (q to quit) ", name))
			inbox.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
				if event.Rune() == 'q' || event.Key() == tcell.KeyEscape {
					app.Stop()
					return nil
				}
				return event
			})

			collectInbox := func() {
				deliveries, err := api.Retrieve(name)
				if err != nil {
					app.QueueUpdateDraw(func() {
						fmt.Fprintf(inbox, "[red]retrieve failed:[-] %v\n", err)
					})
					return
				}

				var tokens []string
				for _, d := range deliveries {
					token, err := pgp.Decrypt(priv, d.PGPHash)
					if err != nil {
						app.QueueUpdateDraw(func() {
							fmt.Fprintf(inbox, "[red]decrypt failed:[-] %v\n", err)
						})
						continue
					}
					tokens = append(tokens, token)

					app.QueueUpdateDraw(func() {
						fmt.Fprintf(inbox, "[green]%s:[-] %s\n", d.Sender, d.Message)
						inbox.ScrollToEnd()
					})
				}

				if len(tokens) > 0 {
					if _, err := api.Delete(tokens); err != nil {
						app.QueueUpdateDraw(func() {
							fmt.Fprintf(inbox, "[red]collect failed:[-] %v\n", err)
						})
					}
				}
			}

			go func() {
				// Anything already deliverable, then one pass per notification.
				collectInbox()
				for {
					_, data, err := conn.ReadMessage()
					if err != nil {
						app.QueueUpdateDraw(func() {
							fmt.Fprintln(inbox, "[yellow]watch socket closed[-]")
						})
						return
					}

					var n model.Notification
					if err := json.Unmarshal(data, &n); err != nil {
						continue
					}
					collectInbox()
				}
			}()

			return app.SetRoot(inbox, true).Run()
		},
	}
}
