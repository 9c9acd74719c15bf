package docsis

import (
	"regexp"
	"strconv"
	"strings"
)

var uptimeCompactRegex = regexp.MustCompile(`^(\d+) days (\d+)h:(\d+)m:(\d+)s`)

// ParseUptime converts a modem uptime string such as "12 days 04h:31m:07s"
// or "12 days 4h 31m 7s" into seconds. It never fails: components that
// cannot be read count as zero.
func ParseUptime(text string) int64 {
	var days, hours, minutes, seconds int64

	if m := uptimeCompactRegex.FindStringSubmatch(text); m != nil {
		days = atoi64(m[1])
		hours = atoi64(m[2])
		minutes = atoi64(m[3])
		seconds = atoi64(m[4])
	} else {
		parts := strings.Fields(text)
		for i, part := range parts {
			switch {
			case part == "days":
				if i > 0 {
					days = atoi64(parts[i-1])
				}
			case strings.HasSuffix(part, "h"):
				hours = atoi64(strings.TrimSuffix(part, "h"))
			case strings.HasSuffix(part, "m"):
				minutes = atoi64(strings.TrimSuffix(part, "m"))
			case strings.HasSuffix(part, "s"):
				seconds = atoi64(strings.TrimSuffix(part, "s"))
			}
		}
	}

	return days*86400 + hours*3600 + minutes*60 + seconds
}

func atoi64(s string) int64 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return int64(v)
}
