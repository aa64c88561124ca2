package fose

import (
	"advisor-backend/lib/restyutil"
)

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput dumps every request/response transcript of
// clients created afterwards to the given output. For debugging the
// undocumented API only, leave unset in production.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
