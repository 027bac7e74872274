package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"todo-service/internal/model"
	"todo-service/internal/service"
)

var (
	colorPrimary = lipgloss.Color("#3498db")
	colorWarn    = lipgloss.Color("#e74c3c")
	colorMuted   = lipgloss.Color("#7f8c8d")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle = lipgloss.NewStyle().Width(20).Foreground(colorMuted)
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWarn)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print todo statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.stats.Stats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStats(*stats))
	return nil
}

func renderStats(stats model.Stats) string {
	var lines []string
	row := func(label, value string) {
		lines = append(lines, labelStyle.Render(label)+value)
	}

	row("Total", fmt.Sprint(stats.TotalTodos))
	row("Completed", fmt.Sprintf("%d (%.1f%%)", stats.CompletedTodos, stats.CompletionRate))
	row("Pending", fmt.Sprint(stats.PendingTodos))
	row("This week", fmt.Sprintf("%d done, %.1f/day", stats.WeeklyCompleted, stats.WeeklyProductivity))

	lines = append(lines, "", titleStyle.Render("Priority"))
	for i := len(model.Priorities) - 1; i >= 0; i-- {
		p := model.Priorities[i]
		row(service.PriorityDisplay(p)+" "+string(p), fmt.Sprint(stats.PriorityBreakdown[p]))
	}

	if len(stats.CategoryBreakdown) > 0 {
		lines = append(lines, "", titleStyle.Render("Categories"))
		names := make([]string, 0, len(stats.CategoryBreakdown))
		for name := range stats.CategoryBreakdown {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			row(name, fmt.Sprint(stats.CategoryBreakdown[name]))
		}
	}

	if stats.OverdueCount > 0 {
		lines = append(lines, "", warnStyle.Render(fmt.Sprintf("Overdue (%d)", stats.OverdueCount)))
		for _, t := range stats.OverdueTodos {
			due := ""
			if t.DueDate != nil {
				due = *t.DueDate
			}
			lines = append(lines, fmt.Sprintf("%s #%d %s  %s", service.PriorityDisplay(t.Priority), t.ID, t.Text, due))
		}
	}

	return panelStyle.Render(titleStyle.Render("Todo stats") + "\n\n" + strings.Join(lines, "\n"))
}
