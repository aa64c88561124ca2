package fose

// Status is the canonical availability of a section. Raw single-letter
// source codes never leak past parsing.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
	StatusUnknown   Status = "UNKNOWN"
)

// SectionData is one offered meeting of a course. Numeric fields
// default to 0 when the source is unparsable, they are never absent.
type SectionData struct {
	Crn               string `json:"crn"`
	SectionNumber     string `json:"section_number"`
	Instructor        string `json:"instructor"`
	MeetingDays       string `json:"meeting_days"`
	MeetingTime       string `json:"meeting_time"`
	MeetingTimesRaw   string `json:"meeting_times_raw"`
	Building          string `json:"building"`
	Room              string `json:"room"`
	Status            Status `json:"status"`
	Capacity          int    `json:"capacity"`
	Enrolled          int    `json:"enrolled"`
	Available         int    `json:"available"`
	WaitlistCapacity  int    `json:"waitlist_capacity"`
	WaitlistEnrolled  int    `json:"waitlist_enrolled"`
	WaitlistAvailable int    `json:"waitlist_available"`
	InstructionMethod string `json:"instruction_method"`
}

// CourseData is one catalog entry with all of its sections. Records
// are created fresh per fetch run and never mutated after assembly.
type CourseData struct {
	CourseCode   string        `json:"course_code"`
	SubjectCode  string        `json:"subject_code"`
	CourseNumber string        `json:"course_number"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Credits      int           `json:"credits"`
	Attributes   []string      `json:"attributes"`
	Sections     []SectionData `json:"sections"`
}

// SectionStub is the lightweight record the search endpoint returns
// for each section, before detail enrichment.
type SectionStub struct {
	Crn      string
	Code     string
	Title    string
	Section  string
	Instr    string
	Meets    string
	Stat     string
	CartOpts string
}

// SectionDetails holds the raw HTML/text fragments the details
// endpoint returns for one CRN.
type SectionDetails struct {
	Seats       string
	Description string
	Attr        string
	Meeting     string
}
