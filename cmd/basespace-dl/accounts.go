package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"basespace-dl/internal/api"
	"basespace-dl/internal/config"
)

func newAccountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the BaseSpace access tokens of a config",
	}

	cmd.AddCommand(
		newAccountsAddCmd(a),
		newAccountsListCmd(a),
		newAccountsRemoveCmd(a),
	)
	return cmd
}

func newAccountsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <token>",
		Short: "Add an access token; the owning user is looked up in BaseSpace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if token == "" {
				return fmt.Errorf("token is required")
			}
			ws, err := config.OpenWorkspace(a.opts.configName)
			if err != nil {
				return err
			}

			user, err := api.NewClient(token, a.clientOptions()...).CurrentUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("look up user for token: %w", err)
			}
			if err := ws.AddAccount(user.ID, token); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), a.formatter, user, func(w io.Writer) error {
				return writePlain(w, "added account %s (%s) to %s\n", user.ID, user.Name, ws.ConfigFile)
			})
		},
	}
}

func newAccountsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured user ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := config.OpenWorkspace(a.opts.configName)
			if err != nil {
				return err
			}
			ids, err := ws.UserIDs()
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), a.formatter, ids, func(w io.Writer) error {
				for _, id := range ids {
					if err := writePlain(w, "%s\n", id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newAccountsRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove the token of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := config.OpenWorkspace(a.opts.configName)
			if err != nil {
				return err
			}
			if err := ws.RemoveAccount(args[0]); err != nil {
				return err
			}
			return writePlain(cmd.OutOrStdout(), "removed account %s\n", args[0])
		},
	}
}
