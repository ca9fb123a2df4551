package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	appidentity "github.com/partdb/backend/internal/application/identity"
)

const minPasswordLength = 6

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(
		newUsersListCmd(a),
		newUsersSetPasswordCmd(a),
		newUsersSetDisabledCmd(a, "enable", false),
		newUsersSetDisabledCmd(a, "disable", true),
	)
	return cmd
}

func newUsersListCmd(a *app) *cobra.Command {
	var (
		search       string
		onlyDisabled bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			filter := appidentity.UserListFilter{Search: search, PageSize: 100}
			if onlyDisabled {
				filter.Disabled = &onlyDisabled
			}

			t := a.table()
			t.AppendHeader(table.Row{"ID", "Username", "Name", "Email", "Group", "2FA", "Status"})
			for page := 1; ; page++ {
				filter.Page = page
				res, err := svc.Users.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				for _, u := range res.Items {
					t.AppendRow(table.Row{u.ID, u.Username, u.FullName, u.Email, groupLabel(u.GroupID), yesNo(u.TFAEnabled), userStatus(u)})
				}
				if int64(page*filter.PageSize) >= res.Total {
					t.AppendFooter(table.Row{"", "", "", "", "", "Total", res.Total})
					break
				}
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "only users whose name contains this text")
	cmd.Flags().BoolVar(&onlyDisabled, "disabled", false, "only disabled users")
	return cmd
}

func newUsersSetPasswordCmd(a *app) *cobra.Command {
	var (
		password   string
		needChange bool
	)
	cmd := &cobra.Command{
		Use:   "set-password <username>",
		Short: "Set the password of a user",
		Long:  "Set the password of a user. The password is read from standard input unless --password is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			user, err := svc.Users.GetByUsername(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("user %q: %w", args[0], err)
			}
			if password == "" {
				if password, err = a.readPassword(user.Username); err != nil {
					return err
				}
			}
			if len(password) < minPasswordLength {
				return fmt.Errorf("the password must have at least %d characters", minPasswordLength)
			}
			err = svc.Users.SetPassword(cmd.Context(), user.ID, appidentity.SetPasswordInput{
				NewPassword:        password,
				NeedPasswordChange: needChange,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Password of %s changed.\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().BoolVar(&needChange, "need-change", false, "force a password change on the next login")
	return cmd
}

func newUsersSetDisabledCmd(a *app, use string, disabled bool) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   use + " <username>...",
		Short: strings.ToUpper(use[:1]) + use[1:] + " the login of users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range args {
				user, err := svc.Users.GetByUsername(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("user %q: %w", name, err)
				}
				if user.Disabled == disabled {
					fmt.Fprintf(a.out, "%s is already %sd.\n", user.Username, use)
					continue
				}
				if _, err := svc.Users.SetDisabled(cmd.Context(), user.ID, disabled, comment); err != nil {
					return fmt.Errorf("user %q: %w", name, err)
				}
				fmt.Fprintf(a.out, "%s %sd.\n", user.Username, use)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "change comment for the log")
	return cmd
}

// readPassword prompts for the password. On a terminal the input is not
// echoed; piped input is read line by line.
func (a *app) readPassword(username string) (string, error) {
	fmt.Fprintf(a.out, "New password for %s: ", username)
	if fd, ok := terminalFd(a.in); ok {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(a.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if len(raw) == 0 {
			return "", errors.New("no password given")
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// terminalFd returns the descriptor of in if it is an interactive terminal
func terminalFd(in io.Reader) (int, bool) {
	f, ok := in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

func groupLabel(id *uint) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("#%d", *id)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func userStatus(u appidentity.UserDTO) string {
	switch {
	case u.Disabled:
		return text.FgRed.Sprint("disabled")
	case u.NeedPwChange:
		return text.FgYellow.Sprint("password change")
	default:
		return text.FgGreen.Sprint("active")
	}
}
