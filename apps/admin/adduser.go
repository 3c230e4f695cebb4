package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/njia/core/user"
)

type addUserOptions struct {
	name     string
	username string
	email    string
	admin    bool
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var opts addUserOptions
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update and reactivate an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			usr, created, err := cli.addUser(cmd, opts)
			if err != nil {
				return err
			}
			verb := "updated"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cli.out, "user %s %s (%s)\n", usr.Username, verb, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "full name (required for new users)")
	cmd.Flags().StringVar(&opts.username, "username", "", "username")
	cmd.Flags().StringVar(&opts.email, "email", "", "email address")
	cmd.Flags().BoolVar(&opts.admin, "admin", false, "grant the admin owner role")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(cmd *cobra.Command, opts addUserOptions) (user.User, bool, error) {
	ctx := cmd.Context()
	svcs, err := cli.services(ctx)
	if err != nil {
		return user.User{}, false, err
	}

	var roles []string
	if opts.admin {
		roles = []string{user.RoleAdminOwner}
	}

	lookup := opts.username
	if lookup == "" {
		lookup = opts.email
	}
	if lookup == "" {
		return user.User{}, false, errors.New("--username or --email is required")
	}

	usr, err := svcs.User.GetByUsernameOrEmail(ctx, lookup)
	switch {
	case err == nil:
		active := true
		uu := user.UpdateUser{
			Name:     opts.name,
			Username: opts.username,
			Email:    opts.email,
			IsActive: &active,
			Roles:    roles,
		}
		if err = uu.Validate(usr, svcs.Validate, svcs.User); err != nil {
			return user.User{}, false, err
		}
		usr, err = svcs.User.Update(ctx, usr, uu)
		return usr, false, err
	case errors.Cause(err) == user.ErrNotFound:
		nu := user.NewUser{
			Name:     opts.name,
			Username: opts.username,
			Email:    opts.email,
			Roles:    roles,
		}
		if err = nu.Validate(svcs.Validate, svcs.User); err != nil {
			return user.User{}, false, err
		}
		usr, err = svcs.User.Create(ctx, nu)
		return usr, true, err
	default:
		return user.User{}, false, err
	}
}
