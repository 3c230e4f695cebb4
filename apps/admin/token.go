package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/njia/apps/api/echo"
)

func (cli *commandLine) tokenCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an API token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svcs, err := cli.services(ctx)
			if err != nil {
				return err
			}
			usr, err := svcs.User.GetByUsernameOrEmail(ctx, username)
			if err != nil {
				return errors.Wrapf(err, "finding %q", username)
			}
			if !usr.IsActive {
				return errors.Errorf("user %q is deactivated", usr.Username)
			}
			token, err := echoapi.GenerateToken(cli.conf, usr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cli.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "the user's username or email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
