package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// force the timezone to campus time because term cutoffs are
// defined in local dates and servers may end up in other regions,
// which skews <time.Time>.Year()/Month()/Day() based logic
func Now() time.Time {
	return time.Now().In(Location)
}
