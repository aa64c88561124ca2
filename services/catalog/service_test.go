package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"advisor-backend/lib/coursestore"
	"advisor-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

// fakeRegistration serves a minimal two-course term the way the live
// API shapes its responses.
func fakeRegistration(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "fose", r.URL.Query().Get("page"))

		w.Header().Set("content-type", "application/json")
		switch r.URL.Query().Get("route") {
		case "search":
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{
						"crn": "10001", "code": "CSCI 141", "title": "Computation",
						"section": "01", "instr": "Knuth", "meets": "MWF 10:00-10:50am",
						"stat": "A", "cart_opts": `{"credit_hrs":{"options":[{"value":"4"}]}}`,
					},
					{
						"crn": "10002", "code": "MATH 220", "title": "Linear Algebra",
						"section": "01", "instr": "Strang", "meets": "TR 2:00-3:20pm",
						"stat": "F", "cart_opts": "",
					},
				},
			})
		case "details":
			var payload struct {
				Key string `json:"key"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			json.NewEncoder(w).Encode(map[string]any{
				"seats":       `<b>Maximum Enrollment:</b> 30<br><b>Seats Avail</b>: 5`,
				"description": "<p>A fine course.</p>",
				"attr":        "<ul><li>Honors</li></ul>",
				"meeting":     `<span>MWF 10:00am in Jones Hall 302</span>`,
			})
		default:
			http.Error(w, "unknown route", http.StatusNotFound)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestServiceSync(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/catalog")
	defer cleanup()

	server := fakeRegistration(t)

	store, err := coursestore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service := NewService(Config{
		BaseUrl:      server.URL,
		ContactEmail: "registrar@test.edu",
		RateLimit:    1000,
		Burst:        1000,
	}, store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	result, err := service.Sync(ctx, "202610")
	require.NoError(t, err)
	require.Equal(t, "202610", result.TermCode)
	require.Equal(t, 2, result.Courses)
	require.Equal(t, 2, result.Sections)
	require.False(t, result.Report.HasIssues())

	courses, err := store.List(ctx, "202610", coursestore.ListOptions{})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.Equal(t, "Computation", courses[0].Title)
	require.Equal(t, 4, courses[0].Credits)
	require.Equal(t, "A fine course.", courses[0].Description)
	require.Equal(t, 30, courses[0].Sections[0].Capacity)

	latest, err := store.LatestReport(ctx, "202610")
	require.NoError(t, err)
	require.False(t, latest.HasIssues)
}

func TestServiceSyncArchivesReportOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	store, err := coursestore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service := NewService(Config{
		BaseUrl:   server.URL,
		RateLimit: 1000,
		Burst:     1000,
	}, store, nil)

	_, err = service.Sync(context.Background(), "202610")
	require.Error(t, err)

	latest, err := store.LatestReport(context.Background(), "202610")
	require.NoError(t, err)
	require.True(t, latest.HasIssues)
}
