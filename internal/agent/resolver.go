package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var coordinatePattern = regexp.MustCompile(`COORDINATES:\s*(\d+)\s*,\s*(\d+)`)

const notFoundReply = "NOT_FOUND"

// parseCoordinates reads the resolver's reply. A NOT_FOUND reply is a
// clean miss, anything else that fails the contract is an error.
func parseCoordinates(content string) (int, int, bool, error) {
	if match := coordinatePattern.FindStringSubmatch(content); match != nil {
		x, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, 0, false, fmt.Errorf("parse x coordinate: %w", err)
		}
		y, err := strconv.Atoi(match[2])
		if err != nil {
			return 0, 0, false, fmt.Errorf("parse y coordinate: %w", err)
		}
		return x, y, true, nil
	}
	if strings.Contains(content, notFoundReply) {
		return 0, 0, false, nil
	}
	return 0, 0, false, fmt.Errorf("unrecognized resolver reply: %s", snippet(content, 120))
}

func snippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
