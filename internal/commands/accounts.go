package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercore/internal/model"
	"github.com/cleared-dev/ledgercore/internal/store"
)

func newAccountsCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Show and edit the chart of accounts",
	}
	cmd.AddCommand(
		newAccountsListCommand(g),
		newAccountsAddCommand(g),
		newAccountsRemoveCommand(g),
	)
	return cmd
}

func newAccountsListCommand(g *globalFlags) *cobra.Command {
	var accountType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			accts := a.accounts.All()
			if accountType != "" {
				t := model.AccountType(strings.ToLower(accountType))
				if !t.Valid() {
					return fmt.Errorf("unknown account type %q", accountType)
				}
				accts = a.accounts.ByType(t)
			}

			rows := make([][]string, 0, len(accts))
			for _, acct := range accts {
				depth := len(a.accounts.Ancestors(acct.ID))
				status := ""
				if !acct.Active {
					status = "inactive"
				}
				kind := "group"
				if a.accounts.IsLeaf(acct.ID) {
					kind = "leaf"
				}
				rows = append(rows, []string{
					strconv.Itoa(acct.ID),
					acct.Code,
					strings.Repeat("  ", depth) + acct.Name,
					string(acct.Type),
					kind,
					status,
				})
			}
			renderTable(a.out, []string{"ID", "Code", "Name", "Type", "Kind", "Status"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountType, "type", "", "only show accounts of this type")
	return cmd
}

func newAccountsAddCommand(g *globalFlags) *cobra.Command {
	var (
		acct     model.Account
		typ      string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account to the chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			acct.Type = model.AccountType(strings.ToLower(typ))
			acct.Active = !inactive
			if err := a.accounts.Add(acct); err != nil {
				return err
			}
			if err := a.accounts.Save(a.root); err != nil {
				return err
			}
			printSuccess(a.out, "Added account %s %s", acct.Code, acct.Name)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&acct.ID, "id", 0, "account ID (required)")
	f.StringVar(&acct.Code, "code", "", "account code (required)")
	f.StringVar(&acct.Name, "name", "", "account name (required)")
	f.StringVar(&typ, "type", "", "asset, liability, equity, revenue or expense (required)")
	f.IntVar(&acct.ParentID, "parent", 0, "parent account ID")
	f.StringVar(&acct.Description, "description", "", "free text")
	f.BoolVar(&inactive, "inactive", false, "create the account inactive")
	for _, name := range []string{"id", "code", "name", "type"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newAccountsRemoveCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <account>",
		Short: "Remove an account without children or postings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.resolveAccount(args[0])
			if err != nil {
				return err
			}
			lines, err := a.store.LinesForAccounts(cmd.Context(), []int{acct.ID}, store.DateRange{})
			if err != nil {
				return fmt.Errorf("checking postings of %s: %w", acct.Code, err)
			}
			if err := a.accounts.Remove(acct.ID, len(lines) > 0); err != nil {
				return err
			}
			if err := a.accounts.Save(a.root); err != nil {
				return err
			}
			printSuccess(a.out, "Removed account %s %s", acct.Code, acct.Name)
			return nil
		},
	}
}
