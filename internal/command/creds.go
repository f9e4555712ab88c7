package command

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/splee/ribbit/internal/credential"
)

// NewCredsCmd creates the creds command group.
func NewCredsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage the stored IMAP password",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the IMAP password in the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("empty password")
			}

			if err := credential.Set(credential.KeyIMAPPassword, password); err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Password stored")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the IMAP password from the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.Delete(credential.KeyIMAPPassword); err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Password removed")
			return nil
		},
	})

	return cmd
}

// readPassword prompts for a password without echo when stdin is a
// terminal, and falls back to reading a line otherwise (pipes, tests).
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "IMAP password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
