package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Itinerary is a parsed itinerary file. The file is markdown: an optional
// "# Title" line, free text, then one "## " section per day.
type Itinerary struct {
	Path    string
	Title   string
	Intro   string
	Days    []Day
	Raw     string
	ModTime time.Time
}

// Day is one "## " section of the itinerary.
type Day struct {
	Heading string
	Body    string
}

// LoadItinerary reads and parses the itinerary file at path.
func LoadItinerary(path string) (Itinerary, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path comes from user config
	if err != nil {
		return Itinerary{}, fmt.Errorf("reading itinerary: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Itinerary{}, fmt.Errorf("reading itinerary: %w", err)
	}

	it := ParseItinerary(string(raw))
	it.Path = path
	it.ModTime = info.ModTime()
	return it, nil
}

// ParseItinerary splits raw into title, intro and days.
func ParseItinerary(raw string) Itinerary {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	it := Itinerary{Raw: raw}

	var (
		intro []string
		body  []string
		cur   *Day
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Body = strings.TrimSpace(strings.Join(body, "\n"))
		it.Days = append(it.Days, *cur)
		body = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			flush()
			cur = &Day{Heading: strings.TrimSpace(line[3:])}
		case cur == nil && it.Title == "" && strings.HasPrefix(line, "# "):
			it.Title = strings.TrimSpace(line[2:])
		case cur == nil:
			intro = append(intro, line)
		default:
			body = append(body, line)
		}
	}
	flush()

	it.Intro = strings.TrimSpace(strings.Join(intro, "\n"))
	return it
}

// Day returns the 1-based day n.
func (it Itinerary) Day(n int) (Day, bool) {
	if n < 1 || n > len(it.Days) {
		return Day{}, false
	}
	return it.Days[n-1], true
}

// DisplayTitle returns the title, or a generic one when the file has none.
func (it Itinerary) DisplayTitle() string {
	if it.Title == "" {
		return "Itinerary"
	}
	return it.Title
}

// dayNumber reads the day navigation key. Values restored from persisted
// history arrive as float64 or string.
func dayNumber(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("invalid day %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("invalid day %v (%T)", v, v)
	}
}
