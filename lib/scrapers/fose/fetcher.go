package fose

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// detail failures above this fraction of sections trigger a report
// warning about degraded data.
const detailFailureWarnRatio = 0.1

// Fetcher orchestrates one full catalog pull: search once, enrich
// every section concurrently, assemble courses. All network access
// goes through the client; the fetcher itself never touches the wire.
type Fetcher struct {
	client *Client
	report *Report
}

func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{
		client: client,
		report: client.Report(),
	}
}

// FetchAllCourses produces the full catalog for a term. A failed
// search is a hard error; a failed detail lookup degrades that one
// section to defaults and is recorded in the report. Course order
// follows the first appearance of each course code in the search
// results, section order follows the search results within a course.
func (f *Fetcher) FetchAllCourses(ctx context.Context, termCode string) ([]CourseData, error) {
	ctx, span := tracer.Start(ctx, "fetcher:FetchAllCourses")
	defer span.End()
	span.SetAttributes(attribute.String("term_code", termCode))

	stubs, err := f.client.FetchSearch(ctx, termCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}

	// group by course code, preserving first-appearance order
	var codeOrder []string
	grouped := map[string][]SectionStub{}
	for _, stub := range stubs {
		if stub.Code == "" {
			continue
		}
		if _, ok := grouped[stub.Code]; !ok {
			codeOrder = append(codeOrder, stub.Code)
		}
		grouped[stub.Code] = append(grouped[stub.Code], stub)
	}

	details, err := f.fetchDetails(ctx, stubs, termCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "detail phase cancelled")
		return nil, err
	}

	successful, failed := f.report.DetailCounts()
	total := successful + failed
	if total > 0 && float64(failed)/float64(total) > detailFailureWarnRatio {
		f.report.AddWarning(fmt.Sprintf(
			"%d of %d detail requests failed, affected sections carry default values",
			failed, total,
		))
	}

	courses := make([]CourseData, 0, len(codeOrder))
	for _, code := range codeOrder {
		courses = append(courses, f.assembleCourse(code, grouped[code], details))
	}

	f.report.SetTotalCourses(len(courses))
	span.SetAttributes(attribute.Int("courses", len(courses)))
	return courses, nil
}

// fetchDetails enriches every distinct CRN concurrently. Individual
// failures are absorbed by the client; only context cancellation stops
// the phase.
func (f *Fetcher) fetchDetails(ctx context.Context, stubs []SectionStub, termCode string) (map[string]*SectionDetails, error) {
	var crns []string
	seen := map[string]bool{}
	for _, stub := range stubs {
		if stub.Crn == "" || seen[stub.Crn] {
			continue
		}
		seen[stub.Crn] = true
		crns = append(crns, stub.Crn)
	}

	var mu sync.Mutex
	details := make(map[string]*SectionDetails, len(crns))

	group, ctx := errgroup.WithContext(ctx)
	// in-flight detail requests are capped at a small multiple of the
	// limiter burst: the limiter governs request rate, this only keeps
	// goroutine fan-out bounded on large terms
	group.SetLimit(f.client.burst * 2)
	for _, crn := range crns {
		crn := crn
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d := f.client.FetchDetails(ctx, crn, termCode)
			if d == nil {
				return nil
			}
			mu.Lock()
			details[crn] = d
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("fetch details for term %s: %w", termCode, err)
	}
	return details, nil
}

// assembleCourse merges the stubs of one course code with their
// fetched details. Course-level fields come from the first stub and
// the first section that has details.
func (f *Fetcher) assembleCourse(code string, stubs []SectionStub, details map[string]*SectionDetails) CourseData {
	first := stubs[0]
	f.client.ValidateCourseCode(code)
	subject, number := ParseCourseCode(code)

	course := CourseData{
		CourseCode:   code,
		SubjectCode:  subject,
		CourseNumber: number,
		Title:        first.Title,
		Credits:      ParseCredits(first.CartOpts),
		Sections:     make([]SectionData, 0, len(stubs)),
	}

	for _, stub := range stubs {
		d := details[stub.Crn]
		course.Sections = append(course.Sections, buildSection(stub, d))

		if d == nil {
			continue
		}
		if course.Description == "" && d.Description != "" {
			course.Description = CleanDescription(d.Description)
		}
		if course.Attributes == nil && d.Attr != "" {
			course.Attributes = ParseAttributes(d.Attr)
		}
	}

	return course
}

// buildSection turns one stub plus its (possibly missing) details into
// a section record. Missing details leave the enrollment numbers at
// zero and the location empty.
func buildSection(stub SectionStub, d *SectionDetails) SectionData {
	meeting := ParseMeeting(stub.Meets)

	section := SectionData{
		Crn:             stub.Crn,
		SectionNumber:   stub.Section,
		Instructor:      stub.Instr,
		MeetingDays:     meeting.Days,
		MeetingTime:     meeting.Time,
		MeetingTimesRaw: meeting.Raw,
		Status:          ParseStatus(stub.Stat),
	}

	if d != nil {
		enrollment := ParseSeats(d.Seats)
		section.Capacity = enrollment.Capacity
		section.Enrolled = enrollment.Enrolled
		section.Available = enrollment.Available
		section.WaitlistCapacity = enrollment.WaitlistCapacity
		section.WaitlistEnrolled = enrollment.WaitlistEnrolled
		section.WaitlistAvailable = enrollment.WaitlistAvailable

		location := ParseLocation(d.Meeting)
		section.Building = location.Building
		section.Room = location.Room
	}

	return section
}
