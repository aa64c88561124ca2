package commands

import (
	"os"

	"advisor-backend/lib/termcode"
	"advisor-backend/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(termCmd)
}

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Shows the current term and the upcoming transition.",
	Run: func(cmd *cobra.Command, args []string) {
		now := timezone.Now()
		current := termcode.Current(now)
		at, next := termcode.NextTransition(now)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendRow(table.Row{"Current term", current.DisplayName(), current.Code()})
		t.AppendRow(table.Row{"Next term", next.DisplayName(), next.Code()})
		t.AppendRow(table.Row{"Transition", at.Format("2006-01-02"), ""})
		t.AppendRow(table.Row{"Update interval", termcode.UpdateInterval(now).String(), ""})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
