package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"zoom-meetings-api/internal/auth"
	"zoom-meetings-api/internal/logging"
)

const minPasswordLen = 8

func newCreateSuperuserCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create or promote the user that owns meetings Zoom reports no host for",
		Long: `createsuperuser stores a superuser with a bcrypt password hash. The
password is read from SUPERUSER_PASSWORD, or from the first line of stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("--email is required")
			}
			pw := os.Getenv("SUPERUSER_PASSWORD")
			if pw == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				var err error
				if pw, err = readPassword(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if len(pw) < minPasswordLen {
				return fmt.Errorf("password too short (min %d)", minPasswordLen)
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			pool, st, err := connect(cmd.Context(), cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			u, err := st.SaveSuperuser(cmd.Context(), email, hash)
			if err != nil {
				return err
			}
			logger.Info("superuser saved", logging.UserID(u.ID), logging.UserHash(u.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "superuser %s ready\n", u.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "superuser email")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
