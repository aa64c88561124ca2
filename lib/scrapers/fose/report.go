package fose

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"advisor-backend/lib/timezone"
)

// fields every search stub / details payload is expected to carry.
// drift from these sets is tracked, never fatal.
var expectedSearchFields = []string{
	"crn", "code", "title", "section", "instr", "meets", "stat", "cart_opts",
}
var expectedDetailsFields = []string{
	"seats", "description", "attr", "meeting",
}

const (
	maxInvalidExamples = 10
	maxApiErrors       = 100
	maxWarnings        = 50
)

type ApiError struct {
	Endpoint string    `json:"endpoint"`
	Status   int       `json:"status"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// Report accumulates data quality issues and schema drift over one
// fetch run. It only grows, entries are never removed. One report is
// owned by exactly one run; methods are safe to call from the run's
// concurrent detail fetches but the report must not be shared across
// independent runs.
type Report struct {
	mu sync.Mutex

	timestamp time.Time
	termCode  string

	totalSections     int
	totalCourses      int
	successfulDetails int
	failedDetails     int

	missingFields         map[string]int
	invalidValues         map[string][]string
	apiErrors             []ApiError
	warnings              []string
	unexpectedFields      map[string]map[string]bool
	missingExpectedFields map[string]map[string]bool
}

func NewReport(termCode string) *Report {
	return &Report{
		timestamp:             timezone.Now(),
		termCode:              termCode,
		missingFields:         map[string]int{},
		invalidValues:         map[string][]string{},
		unexpectedFields:      map[string]map[string]bool{},
		missingExpectedFields: map[string]map[string]bool{},
	}
}

func (r *Report) TermCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.termCode
}

func (r *Report) SetTotalSections(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalSections = n
}

func (r *Report) SetTotalCourses(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalCourses = n
}

func (r *Report) AddDetailSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successfulDetails++
}

func (r *Report) AddDetailFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedDetails++
}

func (r *Report) DetailCounts() (successful, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.successfulDetails, r.failedDetails
}

func (r *Report) AddMissingField(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missingFields[name]++
}

func (r *Report) AddInvalidValue(name, value, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.invalidValues[name]) >= maxInvalidExamples {
		return
	}
	example := value
	if reason != "" {
		example = fmt.Sprintf("%s (%s)", value, reason)
	}
	r.invalidValues[name] = append(r.invalidValues[name], example)
}

func (r *Report) AddApiError(endpoint string, status int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.apiErrors) >= maxApiErrors {
		return
	}
	r.apiErrors = append(r.apiErrors, ApiError{
		Endpoint: endpoint,
		Status:   status,
		Message:  message,
		Time:     timezone.Now(),
	})
}

func (r *Report) ApiErrors() []ApiError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ApiError, len(r.apiErrors))
	copy(out, r.apiErrors)
	return out
}

func (r *Report) AddWarning(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.warnings) >= maxWarnings {
		return
	}
	r.warnings = append(r.warnings, message)
}

// CheckResponseShape compares a response's field set against the
// expected fields for the endpoint and records both directions of
// drift. Repeated calls union into the per-endpoint sets.
func (r *Report) CheckResponseShape(endpoint string, fields []string) {
	var expected []string
	switch endpoint {
	case EndpointSearch:
		expected = expectedSearchFields
	case EndpointDetails:
		expected = expectedDetailsFields
	default:
		return
	}

	actual := map[string]bool{}
	for _, f := range fields {
		actual[f] = true
	}
	known := map[string]bool{}
	for _, f := range expected {
		known[f] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for f := range actual {
		if !known[f] {
			if r.unexpectedFields[endpoint] == nil {
				r.unexpectedFields[endpoint] = map[string]bool{}
			}
			r.unexpectedFields[endpoint][f] = true
		}
	}
	for f := range known {
		if !actual[f] {
			if r.missingExpectedFields[endpoint] == nil {
				r.missingExpectedFields[endpoint] = map[string]bool{}
			}
			r.missingExpectedFields[endpoint][f] = true
		}
	}
}

func (r *Report) HasIssues() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasIssuesLocked()
}

func (r *Report) hasIssuesLocked() bool {
	return len(r.missingFields) > 0 ||
		len(r.invalidValues) > 0 ||
		len(r.apiErrors) > 0 ||
		len(r.unexpectedFields) > 0 ||
		len(r.missingExpectedFields) > 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setToSlice(set map[string]bool) []string {
	return sortedKeys(set)
}

// Summary renders a human-readable digest grouped by category.
func (r *Report) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "VALIDATION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Timestamp: %s\n", r.timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Term: %s\n", r.termCode)
	fmt.Fprintf(&b, "Sections: %d\n", r.totalSections)
	fmt.Fprintf(&b, "Courses: %d\n", r.totalCourses)
	fmt.Fprintf(&b, "Details fetched: %d/%d\n\n",
		r.successfulDetails, r.successfulDetails+r.failedDetails)

	if !r.hasIssuesLocked() {
		fmt.Fprintln(&b, "No issues detected")
	} else {
		if len(r.apiErrors) > 0 {
			fmt.Fprintf(&b, "API errors: %d\n", len(r.apiErrors))
			for i, err := range r.apiErrors {
				if i >= 5 {
					break
				}
				fmt.Fprintf(&b, "  - %s: %d - %s\n", err.Endpoint, err.Status, err.Message)
			}
		}
		if len(r.missingFields) > 0 {
			fmt.Fprintln(&b, "Missing fields:")
			for _, name := range sortedKeys(r.missingFields) {
				fmt.Fprintf(&b, "  - %s: %d occurrences\n", name, r.missingFields[name])
			}
		}
		if len(r.invalidValues) > 0 {
			fmt.Fprintln(&b, "Invalid values:")
			for _, name := range sortedKeys(r.invalidValues) {
				fmt.Fprintf(&b, "  - %s: %s\n", name, strings.Join(r.invalidValues[name], "; "))
			}
		}
		if len(r.unexpectedFields) > 0 {
			fmt.Fprintln(&b, "New API fields detected (possible API change):")
			for _, endpoint := range sortedKeys(r.unexpectedFields) {
				fmt.Fprintf(&b, "  - %s: %s\n", endpoint,
					strings.Join(setToSlice(r.unexpectedFields[endpoint]), ", "))
			}
		}
		if len(r.missingExpectedFields) > 0 {
			fmt.Fprintln(&b, "Expected fields missing (possible API change):")
			for _, endpoint := range sortedKeys(r.missingExpectedFields) {
				fmt.Fprintf(&b, "  - %s: %s\n", endpoint,
					strings.Join(setToSlice(r.missingExpectedFields[endpoint]), ", "))
			}
		}
	}

	if len(r.warnings) > 0 {
		fmt.Fprintln(&b, "\nWarnings:")
		for _, w := range r.warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	b.WriteString(rule)
	return b.String()
}

// ToMap serializes the full report for machine consumption.
func (r *Report) ToMap() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	missingFields := map[string]int{}
	for k, v := range r.missingFields {
		missingFields[k] = v
	}
	invalidValues := map[string][]string{}
	for k, v := range r.invalidValues {
		invalidValues[k] = append([]string{}, v...)
	}
	unexpected := map[string][]string{}
	for k, v := range r.unexpectedFields {
		unexpected[k] = setToSlice(v)
	}
	missingExpected := map[string][]string{}
	for k, v := range r.missingExpectedFields {
		missingExpected[k] = setToSlice(v)
	}

	return map[string]any{
		"timestamp":               r.timestamp.Format(time.RFC3339),
		"term_code":               r.termCode,
		"total_sections":          r.totalSections,
		"total_courses":           r.totalCourses,
		"successful_details":      r.successfulDetails,
		"failed_details":          r.failedDetails,
		"missing_fields":          missingFields,
		"invalid_values":          invalidValues,
		"api_errors":              append([]ApiError{}, r.apiErrors...),
		"warnings":                append([]string{}, r.warnings...),
		"unexpected_fields":       unexpected,
		"missing_expected_fields": missingExpected,
		"has_issues":              r.hasIssuesLocked(),
	}
}
