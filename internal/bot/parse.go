package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateSyntax is the strict calendar-date shape !add accepts.
var dateSyntax = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// errBadDate distinguishes a malformed due date from a missing title so the
// reply can say which field was wrong.
var errBadDate = fmt.Errorf("%w: bad date", ErrInvalidFormat)

// addArgs is the parsed remainder of an !add command.
type addArgs struct {
	Title    string
	DueDate  *string
	Interval int
}

// parseAdd splits the !add remainder into title, optional due date and
// optional reminder interval. "|" is the preferred separator, " -- " the
// legacy one; no separator means title-only.
func parseAdd(raw string) (*addArgs, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidFormat
	}

	var parts []string
	switch {
	case strings.Contains(raw, "|"):
		parts = strings.Split(raw, "|")
	case strings.Contains(raw, "--"):
		parts = strings.Split(raw, "--")
	default:
		parts = []string{raw}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	args := &addArgs{Title: parts[0]}
	if args.Title == "" {
		return nil, ErrInvalidFormat
	}

	if len(parts) > 1 && parts[1] != "" {
		if !validDate(parts[1]) {
			return nil, errBadDate
		}
		due := parts[1]
		args.DueDate = &due
	}

	if len(parts) > 2 {
		// Not-a-number means no reminder, matching the original bot.
		if interval, err := strconv.Atoi(parts[2]); err == nil && interval > 0 {
			args.Interval = interval
		}
	}

	return args, nil
}

// validDate requires YYYY-MM-DD syntax naming a real calendar date, so
// 2024-13-40 is rejected, not just malformed strings.
func validDate(s string) bool {
	if !dateSyntax.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// parseIndex resolves a 1-based !done argument against the size of the last
// listed snapshot. Returns the 0-based index.
func parseIndex(arg string, listLen int) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, ErrInvalidFormat
	}
	if n < 1 || n > listLen {
		return 0, ErrNotFound
	}
	return n - 1, nil
}

// completeEmail appends the default domain when the login argument has no '@'.
func completeEmail(user, defaultDomain string) string {
	if strings.Contains(user, "@") {
		return user
	}
	return user + "@" + defaultDomain
}
