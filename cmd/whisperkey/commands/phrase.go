package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func phraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phrase",
		Short: "Print the recovery phrase for your key (display only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			phrase, err := appCtx.RecoveryPhrase(ctxOf(cmd))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, phrase)
			fmt.Fprintln(out, "Note: this phrase cannot restore your key. Keep a backup of the key store instead.")
			return nil
		},
	}
}
