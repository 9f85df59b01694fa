package helper_util

import (
	"time"
)

// FormatTime renders t the way timestamps are stored in search indices
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
