package protocol

import "strconv"

// formatFloat and parseFloat carry a scalar stat value or tracker
// value as text, since the wire protocol's primitive set (spec §4.1:
// booleans, integers, octet-strings, enumerations, sequences, sets)
// has no floating-point tag of its own.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
