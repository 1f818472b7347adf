// Package commands implements the msgcrypt CLI: local tooling for exercising
// the encryption core. There is no network surface here; transport belongs
// to the surrounding service.
package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"msgcrypt/internal/app"
)

var (
	home   string
	appCtx *app.App
)

func Execute() error {
	root := &cobra.Command{
		Use:   "msgcrypt",
		Short: "End-to-end encryption core tooling",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".msgcrypt")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			var err error
			appCtx, err = app.New(app.Config{Dir: home})
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.msgcrypt)")

	root.AddCommand(keygenCmd(), demoCmd(), groupSimCmd())
	return root.Execute()
}
