package loadpool

import "errors"

// ErrNoCohortAvailable is returned by GetCohort when the available list
// cannot satisfy the requested job (spec §4.4 step 4, §8 invariant 3).
var ErrNoCohortAvailable = errors.New("loadpool: no cohort available")
