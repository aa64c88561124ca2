package coursestore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"advisor-backend/lib/scrapers/fose"
	"advisor-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "coursestore",
		DbSchema: Schema,
	})
	t.Cleanup(cleanup)
	t.Cleanup(func() { res.DB.Close() })
	return NewStore(res.DB)
}

func testCourse(code, title string) fose.CourseData {
	subject, number := fose.ParseCourseCode(code)
	return fose.CourseData{
		CourseCode:   code,
		SubjectCode:  subject,
		CourseNumber: number,
		Title:        title,
		Credits:      3,
		Sections: []fose.SectionData{
			{Crn: "10001", SectionNumber: "01", Status: fose.StatusOpen},
		},
	}
}

func TestStore(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		courses, err := store.List(ctx, "202610", ListOptions{})
		require.NoError(t, err)
		require.Len(t, courses, 0)
	}
	{
		err := store.Upsert(ctx, "202610", []fose.CourseData{
			testCourse("CSCI 141", "Computation"),
			testCourse("MATH 220", "Linear Algebra"),
			testCourse("CSCI 241", "Data Structures"),
		})
		require.NoError(t, err)

		courses, err := store.List(ctx, "202610", ListOptions{})
		require.NoError(t, err)
		require.Len(t, courses, 3)
		require.Equal(t, "CSCI 141", courses[0].CourseCode)
		require.Equal(t, "CSCI 241", courses[1].CourseCode)
		require.Equal(t, "MATH 220", courses[2].CourseCode)
	}
	{
		courses, err := store.List(ctx, "202610", ListOptions{SubjectCode: "CSCI"})
		require.NoError(t, err)
		require.Len(t, courses, 2)
	}
	{
		course, err := store.Get(ctx, "202610", "MATH 220")
		require.NoError(t, err)
		require.Equal(t, "Linear Algebra", course.Title)
		require.Len(t, course.Sections, 1)
		require.Equal(t, fose.StatusOpen, course.Sections[0].Status)
	}
	{
		// upsert replaces the term, stale courses disappear
		err := store.Upsert(ctx, "202610", []fose.CourseData{
			testCourse("CSCI 141", "Computation (revised)"),
		})
		require.NoError(t, err)

		courses, err := store.List(ctx, "202610", ListOptions{})
		require.NoError(t, err)
		require.Len(t, courses, 1)
		require.Equal(t, "Computation (revised)", courses[0].Title)

		_, err = store.Get(ctx, "202610", "MATH 220")
		require.ErrorIs(t, err, sql.ErrNoRows)
	}
}

func TestStoreTermsAreIndependent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "202530", []fose.CourseData{
		testCourse("HIST 200", "History"),
	}))
	require.NoError(t, store.Upsert(ctx, "202610", []fose.CourseData{
		testCourse("HIST 201", "More History"),
	}))

	require.NoError(t, store.DeleteTerm(ctx, "202530"))

	courses, err := store.List(ctx, "202530", ListOptions{})
	require.NoError(t, err)
	require.Len(t, courses, 0)

	courses, err = store.List(ctx, "202610", ListOptions{})
	require.NoError(t, err)
	require.Len(t, courses, 1)
}

func TestStoreReports(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.LatestReport(ctx, "202610")
	require.ErrorIs(t, err, sql.ErrNoRows)

	clean := fose.NewReport("202610")
	clean.SetTotalSections(10)
	require.NoError(t, store.SaveReport(ctx, clean))

	dirty := fose.NewReport("202610")
	dirty.AddMissingField("crn")
	require.NoError(t, store.SaveReport(ctx, dirty))

	latest, err := store.LatestReport(ctx, "202610")
	require.NoError(t, err)
	require.Equal(t, "202610", latest.TermCode)
	require.True(t, latest.HasIssues)
	require.NotEmpty(t, latest.Data["timestamp"])
}
