package extraction

import (
	"fmt"
	"regexp"
)

var (
	yearFirstPattern = regexp.MustCompile(`(\d{4})[-.](\d{2})[-.](\d{2})`)
	dayFirstPattern  = regexp.MustCompile(`(\d{2})[-.](\d{2})[-.](\d{4})`)
)

// FilenameDate finds a YYYY-MM-DD or DD-MM-YYYY date ('-' or '.'
// separated) in a filename. The result is pinned to noon so that no
// timezone conversion can move it to another day.
func FilenameDate(name string) *string {
	if m := yearFirstPattern.FindStringSubmatch(name); m != nil {
		return strPtr(fmt.Sprintf("%s-%s-%s 12:00", m[1], m[2], m[3]))
	}
	if m := dayFirstPattern.FindStringSubmatch(name); m != nil {
		return strPtr(fmt.Sprintf("%s-%s-%s 12:00", m[3], m[2], m[1]))
	}
	return nil
}
