package sqlxrepos

import "strconv"

// itoa keeps positional-arg building terse.
func itoa(n int) string { return strconv.Itoa(n) }
