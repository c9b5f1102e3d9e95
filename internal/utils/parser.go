package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses a duration string supporting multiple formats:
//   - Go duration: "2h", "30m", "1h30m", "90s"
//   - HH:MM:SS format: "02:00:00", "2:30:00", "00:30:00"
//   - H:MM format: "2:30" (interpreted as hours:minutes)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		switch len(parts) {
		case 2:
			hours, err := strconv.Atoi(parts[0])
			if err != nil {
				return 0, fmt.Errorf("invalid hours: %s", parts[0])
			}
			minutes, err := strconv.Atoi(parts[1])
			if err != nil {
				return 0, fmt.Errorf("invalid minutes: %s", parts[1])
			}
			return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
		case 3:
			return ParseWalltime(s)
		default:
			return 0, fmt.Errorf("invalid time format: %s (use HH:MM:SS or HH:MM)", s)
		}
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s (use '2h', '30m', '1h30m', or '02:00:00')", s)
	}
	return dur, nil
}

// ParseWalltime parses a strict HH:MM:SS walltime. Hours may exceed 24,
// minutes and seconds must be below 60.
func ParseWalltime(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid walltime %q (use HH:MM:SS)", s)
	}
	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid walltime %q (use HH:MM:SS)", s)
		}
		fields[i] = n
	}
	if fields[1] >= 60 || fields[2] >= 60 {
		return 0, fmt.Errorf("invalid walltime %q: minutes and seconds must be below 60", s)
	}
	return time.Duration(fields[0])*time.Hour +
		time.Duration(fields[1])*time.Minute +
		time.Duration(fields[2])*time.Second, nil
}

// FormatWalltime formats a duration as HH:MM:SS (e.g. "02:30:00", "168:00:00").
func FormatWalltime(d time.Duration) string {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
