package integrity

import "time"

// now returns the verifier's clock, defaulting to time.Now when none
// was injected. Only elapsed-duration measurement reads it.
func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *Verifier) elapsedMillis(start time.Time) int64 {
	return v.now().Sub(start).Milliseconds()
}
