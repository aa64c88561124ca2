package commands

import (
	"os"

	"advisor-backend/lib/coursestore"
	"advisor-backend/lib/serviceutil"
	"advisor-backend/lib/termcode"
	"advisor-backend/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	listTerm    *string
	listSubject *string
)

func init() {
	listTerm = listCmd.Flags().String("term", "", "Term code to list. Defaults to the current term.")
	listSubject = listCmd.Flags().String("subject", "", "Only list courses of this subject code.")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [--term <code>] [--subject <code>]",
	Short: "Lists the stored catalog for a term.",
	Run: func(cmd *cobra.Command, args []string) {
		term := *listTerm
		if term == "" {
			term = termcode.Current(timezone.Now()).Code()
		}

		service, cleanup := openService(serviceOverrides{})
		defer cleanup()

		courses, err := service.Store().List(cmd.Context(), term, coursestore.ListOptions{
			SubjectCode: *listSubject,
		})
		if err != nil {
			serviceutil.Fatal("failed to list courses", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Code", "Title", "Credits", "Sections", "Open"})

		for _, course := range courses {
			open := 0
			for _, section := range course.Sections {
				if section.Status == "OPEN" {
					open++
				}
			}
			t.AppendRow(table.Row{
				course.CourseCode,
				course.Title,
				course.Credits,
				len(course.Sections),
				open,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
