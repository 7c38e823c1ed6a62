package carts

import (
	"strconv"
	"strings"
)

// int64Array renders ids as a Postgres array literal ("{1,2,3}") so the
// query works with any database/sql driver.
func int64Array(ids []int64) string {
	var b strings.Builder

	b.WriteByte('{')

	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteString(strconv.FormatInt(id, 10))
	}

	b.WriteByte('}')

	return b.String()
}
