// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/render"
)

func newUsersCmd(withEnv envRunner) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List and create users",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users with their role and ban status",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, env *Env) error {
			roster, err := env.Identity.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]any, 0, len(roster))
			for _, e := range roster {
				status := "active"
				if e.IsBanned {
					status = "banned"
				}
				rows = append(rows, []any{e.Username, render.RoleLabel(e.Role), status})
			}
			renderTable(cmd.OutOrStdout(), []string{"Username", "Role", "Status"}, rows)
			return nil
		}),
	}

	var (
		admin    bool
		password string
	)
	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Long:  "Create a user. Without --password the password is read from the first line of stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, env *Env) error {
			pw := password
			if pw == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password: %w", err)
				}
				pw = strings.TrimRight(line, "\r\n")
			}

			role := model.RoleUser
			if admin {
				role = model.RoleAdmin
			}
			if err := env.Identity.RegisterWithRole(cmd.Context(), args[0], pw, role); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", args[0], render.RoleLabel(role))
			return nil
		}),
	}
	addCmd.Flags().BoolVar(&admin, "admin", false, "give the user the admin role")
	addCmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")

	usersCmd.AddCommand(listCmd, addCmd)
	return usersCmd
}

func newBanCmd(withEnv envRunner, actor func() model.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "ban <username>",
		Short: "Ban a user",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, env *Env) error {
			if _, err := env.Identity.Ban(cmd.Context(), actor(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "banned %s\n", args[0])
			return nil
		}),
	}
}

func newUnbanCmd(withEnv envRunner, actor func() model.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "unban <username>",
		Short: "Remove a user's ban",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, env *Env) error {
			removed, err := env.Identity.Unban(cmd.Context(), actor(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s was not banned\n", args[0])
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "unbanned %s\n", args[0])
			return nil
		}),
	}
}
