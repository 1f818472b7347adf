package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"msgcrypt/internal/crypto"
)

// keygen <user>: register a fresh identity with prekeys and print the
// public bundle summary.
func keygenCmd() *cobra.Command {
	var oneTime int
	cmd := &cobra.Command{
		Use:   "keygen <user>",
		Short: "Generate an identity and prekey bundle for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			bundle, err := appCtx.Registry.RegisterUser(user, oneTime)
			if err != nil {
				return err
			}
			fmt.Printf("user:        %s\n", bundle.UserID)
			fmt.Printf("identity:    %s\n", crypto.Fingerprint(bundle.IdentityKey.Slice()))
			fmt.Printf("signing:     %s\n", crypto.Fingerprint(bundle.SigningKey.Slice()))
			fmt.Printf("signed spk:  %s\n", bundle.SignedPrekey.ID)
			fmt.Printf("one-time:    %d issued on first bundle fetch\n", oneTime)
			return nil
		},
	}
	cmd.Flags().IntVar(&oneTime, "one-time", 10, "number of one-time prekeys to generate")
	return cmd
}
