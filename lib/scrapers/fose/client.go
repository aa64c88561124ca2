// Package fose ingests a FOSE-style course-registration catalog: an
// undocumented, rate-limited HTTP API that answers with a mix of JSON
// stubs and raw HTML fragments. The client and fetcher turn it into
// canonical course/section records plus a validation report, without
// ever letting one bad record abort a batch.
package fose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"time"

	"advisor-backend/lib/ratelimit"
	"advisor-backend/lib/respcache"
	"advisor-backend/lib/restyutil"
	"advisor-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/fose")

const (
	EndpointSearch  = "search"
	EndpointDetails = "details"
)

const (
	defaultRate       = 10.0
	defaultBurst      = 20
	defaultSearchTTL  = 5 * time.Minute
	defaultDetailsTTL = time.Minute
)

type searchPayload struct {
	Other struct {
		Srcdb string `json:"srcdb"`
	} `json:"other"`
	Criteria []any `json:"criteria"`
}

type detailsPayload struct {
	Key     string `json:"key"`
	Srcdb   string `json:"srcdb"`
	Matched string `json:"matched"`
}

// responseCache is the slice of respcache.Cache the client depends on.
type responseCache interface {
	Get(ctx context.Context, endpoint string, payload any, ttl time.Duration) ([]byte, error)
	Set(ctx context.Context, endpoint string, payload any, data []byte, ttl time.Duration) error
}

// Client is the only component that talks to the registration API.
// Every outbound request passes through the rate limiter first and,
// when caching is enabled, consults the response cache. Structural
// findings go into the shared Report; the report belongs to exactly
// one fetch run.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
	cache   responseCache
	report  *Report
	burst   int

	searchTTL  time.Duration
	detailsTTL time.Duration

	detailsShapeOnce sync.Once
}

type ClientOptions struct {
	BaseUrl      string
	ContactEmail string
	// tokens refilled per second / maximum held, see lib/ratelimit
	Rate  float64
	Burst int
	// nil disables response caching
	Cache      *respcache.Cache
	SearchTTL  time.Duration
	DetailsTTL time.Duration
	Report     *Report
}

func NewClient(opts ClientOptions) *Client {
	if opts.Rate <= 0 {
		opts.Rate = defaultRate
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.SearchTTL <= 0 {
		opts.SearchTTL = defaultSearchTTL
	}
	if opts.DetailsTTL <= 0 {
		opts.DetailsTTL = defaultDetailsTTL
	}
	if opts.Report == nil {
		opts.Report = NewReport("")
	}
	if opts.ContactEmail == "" {
		opts.ContactEmail = "admin@example.com"
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(time.Second * 30)
	client.SetHeader("user-agent", fmt.Sprintf(
		"advisor-backend/1.0 (course catalog sync; contact: %s)",
		opts.ContactEmail,
	))
	client.SetHeader("accept", "application/json")

	if restyInstrumentOutput != nil {
		restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)
	} else {
		telemetry.InstrumentResty(client, "scrapers/fose/http")
	}

	c := &Client{
		http:       client,
		limiter:    ratelimit.New(opts.Rate, opts.Burst),
		report:     opts.Report,
		burst:      opts.Burst,
		searchTTL:  opts.SearchTTL,
		detailsTTL: opts.DetailsTTL,
	}
	if opts.Cache != nil {
		c.cache = opts.Cache
	}
	return c
}

func (c *Client) Report() *Report {
	return c.report
}

// Close releases the client's network resources. The client is scoped
// to one fetch run and must be closed on every exit path.
func (c *Client) Close() {
	c.http.GetClient().CloseIdleConnections()
}

// post runs one rate-limited, cached call against a route of the
// registration API and returns the raw response body.
func (c *Client) post(ctx context.Context, route string, payload any, ttl time.Duration) ([]byte, error) {
	if c.cache != nil {
		body, err := c.cache.Get(ctx, route, payload, ttl)
		if err == nil {
			return body, nil
		}
	}

	err := c.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":  "fose",
			"route": route,
		}).
		SetHeader("content-type", "application/json").
		SetBody(payload).
		Post("")
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != 200 {
		return nil, &statusError{Status: res.StatusCode(), Body: string(res.Body())}
	}

	if c.cache != nil {
		// a cache write problem never fails a fetched response
		err = c.cache.Set(ctx, route, payload, res.Body(), ttl)
		if err != nil {
			slog.WarnContext(ctx, "failed to cache response",
				"route", route, "err", err)
		}
	}

	return res.Body(), nil
}

type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

func errStatus(err error) int {
	if se, ok := err.(*statusError); ok {
		return se.Status
	}
	return 0
}

// FetchSearch retrieves every section stub for a term. This is the
// only hard failure path of the client: without search results no
// courses can be produced at all.
func (c *Client) FetchSearch(ctx context.Context, termCode string) ([]SectionStub, error) {
	ctx, span := tracer.Start(ctx, "client:FetchSearch")
	defer span.End()
	span.SetAttributes(attribute.String("term_code", termCode))

	var payload searchPayload
	payload.Other.Srcdb = termCode
	payload.Criteria = []any{}

	body, err := c.post(ctx, EndpointSearch, payload, c.searchTTL)
	if err != nil {
		c.report.AddApiError(EndpointSearch, errStatus(err), err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "search request failed")
		return nil, fmt.Errorf("fetch search for term %s: %w", termCode, err)
	}

	var response struct {
		Results []json.RawMessage `json:"results"`
	}
	err = json.Unmarshal(body, &response)
	if err != nil {
		c.report.AddApiError(EndpointSearch, 0, fmt.Sprintf("invalid json: %s", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode search response")
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	stubs := make([]SectionStub, 0, len(response.Results))
	for i, raw := range response.Results {
		var fields map[string]any
		err := json.Unmarshal(raw, &fields)
		if err != nil {
			c.report.AddInvalidValue("results", string(raw), "not an object")
			continue
		}

		if i == 0 {
			c.report.CheckResponseShape(EndpointSearch, mapKeys(fields))
		}

		stub := SectionStub{
			Crn:      stringField(fields, "crn"),
			Code:     stringField(fields, "code"),
			Title:    stringField(fields, "title"),
			Section:  stringField(fields, "section"),
			Instr:    stringField(fields, "instr"),
			Meets:    stringField(fields, "meets"),
			Stat:     stringField(fields, "stat"),
			CartOpts: stringField(fields, "cart_opts"),
		}
		if stub.Section == "" {
			stub.Section = stringField(fields, "no")
		}

		// advisory only: a flagged stub is still returned
		c.ValidateSection(stub)
		stubs = append(stubs, stub)
	}

	c.report.SetTotalSections(len(stubs))
	span.SetAttributes(attribute.Int("sections", len(stubs)))
	return stubs, nil
}

// FetchDetails retrieves the raw detail fragments for one CRN. It
// absorbs every failure: transport and decoding errors are recorded as
// api errors and yield nil so the caller proceeds with defaults.
func (c *Client) FetchDetails(ctx context.Context, crn, termCode string) *SectionDetails {
	ctx, span := tracer.Start(ctx, "client:FetchDetails")
	defer span.End()
	span.SetAttributes(
		attribute.String("crn", crn),
		attribute.String("term_code", termCode),
	)

	payload := detailsPayload{
		Key:     fmt.Sprintf("crn:%s", crn),
		Srcdb:   termCode,
		Matched: fmt.Sprintf("crn:%s", crn),
	}

	body, err := c.post(ctx, EndpointDetails, payload, c.detailsTTL)
	if err != nil {
		c.report.AddApiError(EndpointDetails, errStatus(err), err.Error())
		c.report.AddDetailFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "details request failed")
		return nil
	}

	var fields map[string]any
	err = json.Unmarshal(body, &fields)
	if err != nil {
		c.report.AddApiError(EndpointDetails, 0, fmt.Sprintf("invalid json: %s", err))
		c.report.AddDetailFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode details response")
		return nil
	}

	c.detailsShapeOnce.Do(func() {
		c.report.CheckResponseShape(EndpointDetails, mapKeys(fields))
	})

	c.report.AddDetailSuccess()
	return &SectionDetails{
		Seats:       stringField(fields, "seats"),
		Description: stringField(fields, "description"),
		Attr:        stringField(fields, "attr"),
		Meeting:     stringField(fields, "meeting"),
	}
}

var crnRegex = regexp.MustCompile(`^\d+$`)

// ValidateSection checks a stub for required fields and plausible
// values, recording violations in the report. Validation is advisory,
// it never filters the stub out.
func (c *Client) ValidateSection(stub SectionStub) bool {
	valid := true

	if stub.Crn == "" {
		c.report.AddMissingField("crn")
		valid = false
	}
	if stub.Code == "" {
		c.report.AddMissingField("code")
		valid = false
	}
	if stub.Title == "" {
		c.report.AddMissingField("title")
		valid = false
	}

	if stub.Crn != "" && !crnRegex.MatchString(stub.Crn) {
		c.report.AddInvalidValue("crn", stub.Crn, "not numeric")
		valid = false
	}

	switch stub.Stat {
	case "", "A", "F", "C", "X":
	default:
		c.report.AddInvalidValue("stat", stub.Stat, "unknown status code")
	}

	return valid
}

var courseCodeRegex = regexp.MustCompile(`^[A-Z]+\s+\d+[A-Z]?$`)

// ValidateCourseCode checks the "SUBJ 123X" shape of a course code.
func (c *Client) ValidateCourseCode(code string) bool {
	if !courseCodeRegex.MatchString(code) {
		c.report.AddInvalidValue("code", code, "invalid format")
		return false
	}
	return true
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
