package fose

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportStartsClean(t *testing.T) {
	report := NewReport("202610")
	require.False(t, report.HasIssues())
	require.Contains(t, report.Summary(), "No issues detected")
	require.Equal(t, "202610", report.TermCode())
}

func TestReportInvalidValueCap(t *testing.T) {
	report := NewReport("202610")
	for i := 0; i < 25; i++ {
		report.AddInvalidValue("crn", fmt.Sprintf("bad-%d", i), "not numeric")
	}

	invalid := report.ToMap()["invalid_values"].(map[string][]string)
	require.Len(t, invalid["crn"], 10)
	require.Equal(t, "bad-0 (not numeric)", invalid["crn"][0])
}

func TestReportApiErrorCap(t *testing.T) {
	report := NewReport("202610")
	for i := 0; i < 150; i++ {
		report.AddApiError(EndpointDetails, 500, "boom")
	}
	require.Len(t, report.ApiErrors(), 100)
}

func TestReportWarningCap(t *testing.T) {
	report := NewReport("202610")
	for i := 0; i < 80; i++ {
		report.AddWarning("slow")
	}
	warnings := report.ToMap()["warnings"].([]string)
	require.Len(t, warnings, 50)
}

func TestReportResponseShapeDrift(t *testing.T) {
	report := NewReport("202610")
	report.CheckResponseShape(EndpointSearch, []string{
		"crn", "code", "title", "section", "instr", "meets", "stat", "brand_new",
	})

	require.True(t, report.HasIssues())
	m := report.ToMap()
	unexpected := m["unexpected_fields"].(map[string][]string)
	require.Equal(t, []string{"brand_new"}, unexpected[EndpointSearch])
	missing := m["missing_expected_fields"].(map[string][]string)
	require.Equal(t, []string{"cart_opts"}, missing[EndpointSearch])
}

func TestReportResponseShapeExactMatch(t *testing.T) {
	report := NewReport("202610")
	report.CheckResponseShape(EndpointDetails, []string{
		"seats", "description", "attr", "meeting",
	})
	require.False(t, report.HasIssues())
}

func TestReportSummaryListsIssues(t *testing.T) {
	report := NewReport("202530")
	report.SetTotalSections(12)
	report.SetTotalCourses(4)
	report.AddMissingField("title")
	report.AddMissingField("title")
	report.AddInvalidValue("stat", "Z", "unknown status code")
	report.AddApiError(EndpointDetails, 503, "service unavailable")
	report.AddWarning("2 of 12 detail requests failed")

	summary := report.Summary()
	require.Contains(t, summary, "Term: 202530")
	require.Contains(t, summary, "title: 2 occurrences")
	require.Contains(t, summary, "Z (unknown status code)")
	require.Contains(t, summary, "503 - service unavailable")
	require.Contains(t, summary, "2 of 12 detail requests failed")
	require.NotContains(t, summary, "No issues detected")
	require.True(t, strings.HasPrefix(summary, strings.Repeat("=", 60)))
}

func TestReportConcurrentRecording(t *testing.T) {
	report := NewReport("202610")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				report.AddDetailSuccess()
			} else {
				report.AddDetailFailure()
			}
			report.AddMissingField("crn")
		}(i)
	}
	wg.Wait()

	successful, failed := report.DetailCounts()
	require.Equal(t, 25, successful)
	require.Equal(t, 25, failed)
	require.Equal(t, 50, report.ToMap()["missing_fields"].(map[string]int)["crn"])
}
