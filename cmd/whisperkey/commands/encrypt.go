package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisperkey/internal/domain"
)

// encrypt <recipient> [message]: encrypt a message to <recipient>'s published key.
func encryptCmd() *cobra.Command {
	var publicKey string
	cmd := &cobra.Command{
		Use:   "encrypt [recipient] [message|-]",
		Short: "Encrypt a message to a user's published key",
		Long: "Encrypt a message to a user's published key, or to an explicit key with --key.\n" +
			"The message is read from stdin when omitted or given as -.",
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				ct  string
				err error
			)
			if publicKey != "" {
				msg, rerr := inputArg(cmd, args, 0)
				if rerr != nil {
					return rerr
				}
				ct, err = appCtx.Messages.EncryptTo(domain.EncodedPublicKey(publicKey), msg)
			} else {
				if len(args) == 0 {
					return fmt.Errorf("recipient required (or use --key)")
				}
				msg, rerr := inputArg(cmd, args, 1)
				if rerr != nil {
					return rerr
				}
				ct, err = appCtx.Messages.Encrypt(ctxOf(cmd), domain.UserID(args[0]), msg)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ct)
			return nil
		},
	}
	cmd.Flags().StringVar(&publicKey, "key", "", "encrypt to this base64 SPKI public key instead of a directory lookup")
	return cmd
}

// decrypt [ciphertext]: decrypt a message addressed to the local user.
func decryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt [ciphertext|-]",
		Short: "Decrypt a message addressed to you",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ct, err := inputArg(cmd, args, 0)
			if err != nil {
				return err
			}
			pt, err := appCtx.Messages.Decrypt(ctxOf(cmd), appCtx.User, ct)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pt)
			return nil
		},
	}
}
