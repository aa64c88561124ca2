package commands

import (
	"fmt"

	"advisor-backend/lib/serviceutil"
	"advisor-backend/lib/termcode"
	"advisor-backend/lib/timezone"

	"github.com/spf13/cobra"
)

var reportTerm *string

func init() {
	reportTerm = reportCmd.Flags().String("term", "", "Term code to show the report for. Defaults to the current term.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--term <code>]",
	Short: "Shows the latest validation report for a term.",
	Run: func(cmd *cobra.Command, args []string) {
		term := *reportTerm
		if term == "" {
			term = termcode.Current(timezone.Now()).Code()
		}

		service, cleanup := openService(serviceOverrides{})
		defer cleanup()

		latest, err := service.Store().LatestReport(cmd.Context(), term)
		if err != nil {
			serviceutil.Fatal("no stored report for term", err)
		}

		fmt.Printf("Report #%d for %s (%s)\n",
			latest.Id, latest.TermCode, latest.CreatedAt.Format("2006-01-02 15:04"))
		if latest.HasIssues {
			fmt.Println("Status: issues detected")
		} else {
			fmt.Println("Status: clean")
		}
		for _, key := range []string{
			"total_sections", "total_courses",
			"successful_details", "failed_details",
		} {
			fmt.Printf("%s: %v\n", key, latest.Data[key])
		}
	},
}
