package suite

import (
	"errors"
	"fmt"
	"time"
)

// ErrPending is returned by a Func whose completion is signalled later
// through its Done callback.
var ErrPending = errors.New("suite: body pending")

// ErrNotRegistering is returned when registration is attempted after the
// tree has been sealed.
var ErrNotRegistering = errors.New("describe/it can only be called while tests are being registered, not while they run")

// TimeoutError settles a body that ran past its limit.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("`it` function timed out. Function ran longer than %dms", e.Limit.Milliseconds())
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
