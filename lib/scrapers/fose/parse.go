package fose

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"advisor-backend/lib/htmlutil"
)

// Each parser below turns one raw fragment of a details/search payload
// into a structured value. They are pure and never fail: malformed
// input degrades to a documented default so one broken record cannot
// abort a batch.

// DefaultCredits is used when cart_opts is absent or unparsable.
const DefaultCredits = 3

// ParseStatus maps a single-letter source status code to the canonical
// enum. Only A/F/C/X have ever been observed; any other non-empty code
// is treated conservatively as CANCELLED (callers record it for drift
// tracking), an empty code is UNKNOWN.
func ParseStatus(code string) Status {
	switch code {
	case "":
		return StatusUnknown
	case "A":
		return StatusOpen
	case "F":
		return StatusClosed
	case "C", "X":
		return StatusCancelled
	default:
		return StatusCancelled
	}
}

type Enrollment struct {
	Capacity          int
	Available         int
	Enrolled          int
	WaitlistCapacity  int
	WaitlistEnrolled  int
	WaitlistAvailable int
}

var (
	capacityRegex  = regexp.MustCompile(`Maximum Enrollment:</b>\s*(\d+)`)
	availableRegex = regexp.MustCompile(`Seats Avail</b>:\s*(\d+)`)
	waitlistRegex  = regexp.MustCompile(`Waitlist Total:</b>\s*(\d+)\s*of\s*(\d+)`)
)

// ParseSeats extracts enrollment numbers from the labeled seats
// fragment. Enrolled is derived as capacity - available. Absent input
// yields all zeroes.
func ParseSeats(seatsHtml string) Enrollment {
	var result Enrollment
	if seatsHtml == "" {
		return result
	}

	if m := capacityRegex.FindStringSubmatch(seatsHtml); m != nil {
		result.Capacity, _ = strconv.Atoi(m[1])
	}
	if m := availableRegex.FindStringSubmatch(seatsHtml); m != nil {
		result.Available, _ = strconv.Atoi(m[1])
	}
	result.Enrolled = result.Capacity - result.Available

	if m := waitlistRegex.FindStringSubmatch(seatsHtml); m != nil {
		result.WaitlistEnrolled, _ = strconv.Atoi(m[1])
		result.WaitlistCapacity, _ = strconv.Atoi(m[2])
		result.WaitlistAvailable = result.WaitlistCapacity - result.WaitlistEnrolled
	}

	return result
}

// ParseCredits follows credit_hrs.options[0].value inside the
// JSON-encoded cart_opts string. The value arrives either as a string
// or a bare number depending on the endpoint's mood.
func ParseCredits(cartOpts string) int {
	if cartOpts == "" {
		return DefaultCredits
	}

	var opts struct {
		CreditHrs struct {
			Options []struct {
				Value any `json:"value"`
			} `json:"options"`
		} `json:"credit_hrs"`
	}
	if err := json.Unmarshal([]byte(cartOpts), &opts); err != nil {
		return DefaultCredits
	}
	if len(opts.CreditHrs.Options) == 0 {
		return DefaultCredits
	}

	switch v := opts.CreditHrs.Options[0].Value.(type) {
	case string:
		credits, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return DefaultCredits
		}
		return credits
	case float64:
		return int(v)
	default:
		return DefaultCredits
	}
}

// ParseCourseCode splits a course code on the first space into subject
// and number, e.g. "BUS 301W" -> ("BUS", "301W"). A code without a
// space is all subject.
func ParseCourseCode(code string) (subject, number string) {
	i := strings.IndexByte(code, ' ')
	if i < 0 {
		return code, ""
	}
	return code[:i], strings.TrimSpace(code[i+1:])
}

// ParseAttributes extracts the category tags from an unordered-list
// fragment, deduplicated in document order.
func ParseAttributes(attrHtml string) []string {
	items := htmlutil.ListItems(attrHtml)
	if len(items) == 0 {
		return nil
	}
	seen := map[string]bool{}
	attrs := items[:0]
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		attrs = append(attrs, item)
	}
	return attrs
}

type Meeting struct {
	Days string
	Time string
	Raw  string
}

var meetingRegex = regexp.MustCompile(`(?i)([MTWRFSU]+)\s+(\d{1,2}[:\d]*[-–]\d{1,2}[:\d]*[ap]?m?)`)

// ParseMeeting splits a string like "MWF 10:00-10:50am" into a days
// token and a time token, keeping the source string verbatim in Raw.
func ParseMeeting(meets string) Meeting {
	result := Meeting{Raw: meets}
	if meets == "" {
		return result
	}

	if m := meetingRegex.FindStringSubmatch(meets); m != nil {
		result.Days = m[1]
		result.Time = m[2]
	}
	return result
}

type Location struct {
	Building string
	Room     string
}

var locationRegex = regexp.MustCompile(`in\s+(.+?)\s+(\d+[A-Za-z]?)\s*</span>`)

// ParseLocation extracts building and room from the "in <Building>
// <Room>" pattern of the meeting fragment. No match yields empty
// strings for both.
func ParseLocation(meetingHtml string) Location {
	var result Location
	if meetingHtml == "" {
		return result
	}

	if m := locationRegex.FindStringSubmatch(meetingHtml); m != nil {
		result.Building = strings.TrimSpace(m[1])
		result.Room = m[2]
	}
	return result
}

// CleanDescription strips all markup from a description fragment.
func CleanDescription(descHtml string) string {
	return htmlutil.StripTags(descHtml)
}
