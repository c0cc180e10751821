package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisperkey/internal/crypto"
	"whisperkey/internal/services/bootstrap"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Ensure a key pair exists and its public key is published",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			st := appCtx.Start(ctxOf(cmd))
			out := cmd.OutOrStdout()

			switch st.State {
			case bootstrap.StateNotInitialized:
				return fmt.Errorf("encryption not initialized: %w", st.Err)
			case bootstrap.StateRemoteOnly:
				fmt.Fprintln(out, "A public key is published for this user but this device has no private key.")
				fmt.Fprintln(out, "Messages to you cannot be decrypted here.")
				return nil
			}

			fp, _ := crypto.FingerprintRSA(st.KeyPair.Public)
			if st.Generated {
				fmt.Fprintln(out, "Key pair created.")
			} else {
				fmt.Fprintln(out, "Key pair already present.")
			}
			fmt.Fprintf(out, "Fingerprint: %s\n", fp)
			if st.State == bootstrap.StatePublishFailed {
				fmt.Fprintf(out, "Warning: public key not published (%v). Run init again to retry.\n", st.Err)
			}
			return nil
		},
	}
}
