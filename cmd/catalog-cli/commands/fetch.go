package commands

import (
	"fmt"
	"log/slog"
	"time"

	"advisor-backend/lib/restyutil"
	"advisor-backend/lib/scrapers/fose"
	"advisor-backend/lib/serviceutil"
	"advisor-backend/lib/termcode"
	"advisor-backend/lib/timezone"

	"github.com/spf13/cobra"
)

var (
	fetchTerm      *string
	fetchDb        *string
	fetchNoCache   *bool
	fetchDebugHttp *bool
)

func init() {
	fetchTerm = fetchCmd.Flags().String("term", "", "Term code to fetch, e.g. 202610. Defaults to the current term.")
	fetchDb = fetchCmd.Flags().String("db", "", "The database to write the catalog to, overrides the config.")
	fetchNoCache = fetchCmd.Flags().Bool("no-cache", false, "Bypass the response cache for this run.")
	fetchDebugHttp = fetchCmd.Flags().Bool("debug-http", false, "Dump every request/response transcript to .dev/resty/catalog.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--term <code>] [--db <path/to/catalog.db>] [--no-cache]",
	Short: "Fetches the full catalog for a term and writes it to the database.",
	Run: func(cmd *cobra.Command, args []string) {
		term := *fetchTerm
		if term == "" {
			term = termcode.Current(timezone.Now()).Code()
		} else if _, err := termcode.Parse(term); err != nil {
			serviceutil.Fatal("invalid term code", err)
		}

		if *fetchDebugHttp {
			fose.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/catalog"))
		}

		service, cleanup := openService(serviceOverrides{
			DatabasePath: *fetchDb,
			NoCache:      *fetchNoCache,
		})
		defer cleanup()

		t1 := time.Now()
		result, err := service.Sync(cmd.Context(), term)
		if err != nil {
			serviceutil.Fatal("catalog fetch failed", err)
		}
		t2 := time.Now()

		slog.Info("fetched catalog",
			"term", result.TermCode,
			"courses", result.Courses,
			"sections", result.Sections,
			"seconds", t2.Sub(t1).Seconds())
		fmt.Println(result.Report.Summary())
	},
}
