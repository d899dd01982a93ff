package nexo

import (
	"fmt"
	"strings"
	"time"
)

// dateTimeLayout is the single textual timestamp format the protocol
// accepts: ISO 8601 with exactly millisecond precision and an explicit
// UTC designator. Anything else is a decode error, not a best-effort parse.
const dateTimeLayout = "2006-01-02T15:04:05.000"

// DateTime is a protocol timestamp. It always marshals in UTC with
// millisecond precision and a trailing "Z".
type DateTime struct {
	time.Time
}

// Now returns the current time as a protocol DateTime, truncated to
// millisecond precision so a value round-trips through the wire format.
func Now() DateTime {
	return DateTime{time.Now().UTC().Truncate(time.Millisecond)}
}

// NewDateTime converts t to a protocol DateTime.
func NewDateTime(t time.Time) DateTime {
	return DateTime{t.UTC().Truncate(time.Millisecond)}
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.UTC().Format(dateTimeLayout) + `Z"`), nil
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("timestamp must be a JSON string, got %s", s)
	}
	s = s[1 : len(s)-1]

	if !strings.HasSuffix(s, "Z") {
		return fmt.Errorf("timestamp %q must carry the UTC designator Z", s)
	}
	s = strings.TrimSuffix(s, "Z")

	// ParseInLocation with the exact layout rejects missing or extra
	// fractional digits and any embedded zone offset.
	t, err := time.ParseInLocation(dateTimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("timestamp %q does not match format %sZ: %w", s, dateTimeLayout, err)
	}

	d.Time = t
	return nil
}
