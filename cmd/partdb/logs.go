package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	applog "github.com/partdb/backend/internal/application/logsystem"
)

const timeLayout = "2006-01-02 15:04:05"

func newLogsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the event log",
	}
	cmd.AddCommand(newLogsShowCmd(a))
	return cmd
}

func newLogsShowCmd(a *app) *cobra.Command {
	var (
		filter      applog.LogListFilter
		username    string
		oldestFirst bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the newest log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			if username != "" {
				user, err := svc.Users.GetByUsername(cmd.Context(), username)
				if err != nil {
					return fmt.Errorf("user %q: %w", username, err)
				}
				filter.UserID = &user.ID
			}
			if oldestFirst {
				desc := false
				filter.SortDesc = &desc
			}

			entries, total, err := svc.LogService.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			t := a.table()
			t.AppendHeader(table.Row{"ID", "Time", "Type", "Level", "Target", "User", "Details"})
			for _, e := range entries {
				t.AppendRow(table.Row{
					e.ID,
					e.Timestamp.Local().Format(timeLayout),
					e.Type,
					colorLevel(e.Level),
					targetLabel(e),
					e.Username,
					details(e),
				})
			}
			t.SetColumnConfigs([]table.ColumnConfig{{Number: 7, WidthMax: 60}})
			t.AppendFooter(table.Row{"", "", "", "", "", "Total", total})
			t.Render()
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&filter.Types, "type", "t", nil, "only entries of these types")
	f.StringVar(&filter.TargetType, "target-type", "", "only entries about elements of this type")
	f.UintVar(&filter.TargetID, "target-id", 0, "only entries about the element with this ID")
	f.StringVarP(&username, "user", "u", "", "only entries caused by this user")
	f.StringVar(&filter.MinLevel, "min-level", "", "only entries of this level or more severe")
	f.StringVarP(&filter.Search, "search", "s", "", "search in comments and user names")
	f.IntVarP(&filter.PageSize, "limit", "n", 50, "number of entries per page")
	f.IntVarP(&filter.Page, "page", "p", 1, "page to show")
	f.BoolVar(&oldestFirst, "oldest-first", false, "show the oldest entries first")
	return cmd
}

func targetLabel(e applog.LogEntryResponse) string {
	if e.TargetType == "" {
		return "-"
	}
	return fmt.Sprintf("%s #%d", e.TargetType, e.TargetID)
}

func details(e applog.LogEntryResponse) string {
	if e.UndoneID != 0 {
		return fmt.Sprintf("%s of #%d %s", e.UndoMode, e.UndoneID, e.Comment)
	}
	return e.Comment
}

func colorLevel(level string) string {
	switch level {
	case "emergency", "alert", "critical", "error":
		return text.FgRed.Sprint(level)
	case "warning":
		return text.FgYellow.Sprint(level)
	case "debug":
		return text.FgHiBlack.Sprint(level)
	default:
		return level
	}
}
