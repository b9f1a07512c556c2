package utils

import (
	"strconv"
)

// ParseID converts a path or query value into a row id, returning 0 when it
// is not a positive integer.
func ParseID(s string) uint {
	i, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(i)
}
