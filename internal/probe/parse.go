package probe

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

const timeMarker = "time="

// ParseTime extracts the first "time=<number>" value from ping-style output.
// The unit suffix is ignored ("time=23.5 ms", "time=23.5ms").
func ParseTime(out []byte) (float64, bool) {
	s := bufio.NewScanner(bytes.NewReader(out))
	for s.Scan() {
		line := s.Text()
		i := strings.Index(line, timeMarker)
		if i < 0 {
			continue
		}
		if v, ok := leadingFloat(line[i+len(timeMarker):]); ok {
			return v, true
		}
	}
	return 0, false
}

// leadingFloat parses the longest numeric prefix of s after any blanks.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t")
	end := 0
	dot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !dot {
			dot = true
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
