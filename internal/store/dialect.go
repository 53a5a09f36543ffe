package store

import (
	"strconv"
	"strings"
)

// dialect captures the few differences between the supported SQL engines.
type dialect struct {
	name       string // migrations subdirectory
	driver     string // database/sql driver name
	dollarArgs bool   // $1, $2 placeholders instead of ?
}

var (
	sqliteDialect   = dialect{name: "sqlite", driver: "sqlite"}
	postgresDialect = dialect{name: "postgres", driver: "postgres", dollarArgs: true}
)

// rebind rewrites ? placeholders for engines that number their parameters.
// Queries in this package never contain a literal '?'.
func (d dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
