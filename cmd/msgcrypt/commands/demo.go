package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"msgcrypt/internal/domain"
)

// demo: full two-party walkthrough against an in-memory pair of users.
// Registers both sides, establishes a session, then round-trips a message
// through the ratchet.
func demoCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a two-party establish/encrypt/decrypt round trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := appCtx.Registry.RegisterUser("alice", 5); err != nil {
				return err
			}
			if _, err := appCtx.Registry.RegisterUser("bob", 5); err != nil {
				return err
			}

			sess, err := appCtx.Sessions.Initiate("alice", "bob")
			if err != nil {
				return err
			}
			fmt.Printf("session %s: %s -> %s (%s)\n", sess.ID, sess.LocalUser, sess.RemoteUser, sess.State)

			if err := appCtx.Sessions.Accept(sess.ID); err != nil {
				return err
			}
			fp, err := appCtx.Sessions.Fingerprint(sess.ID)
			if err != nil {
				return err
			}
			fmt.Printf("accepted; fingerprint %s\n", fp)

			meta := domain.MessageMetadata{MessageID: "demo-1", SenderID: "alice"}
			ct, meta, err := appCtx.Messages.EncryptMessage(sess.ID, []byte(text), meta)
			if err != nil {
				return err
			}
			fmt.Printf("encrypted %d bytes with %s, counter %d\n", len(ct), meta.Algorithm, meta.KeyID)

			pt, err := appCtx.Messages.DecryptMessage(sess.ID, ct, meta)
			if err != nil {
				return err
			}
			fmt.Printf("decrypted: %q\n", pt)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "hello from the ratchet", "plaintext to round-trip")
	return cmd
}
