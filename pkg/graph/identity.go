package graph

import "fmt"

// EventKey derives the stable identity for an event node. Missing date or
// location components are replaced with "unknown" so that repeated mentions
// of the same partially-described event collapse into one node.
func EventKey(name string, date string, location string) string {
	if date == "" {
		date = "unknown"
	}
	if location == "" {
		location = "unknown"
	}
	return fmt.Sprintf("%s-%s-%s", name, date, location)
}
