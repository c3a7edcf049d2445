package store

import "github.com/lib/pq"

// pqErrorCode extracts the Postgres SQLSTATE from err, or "" if err is not
// a *pq.Error. Centralized here so every repository's conflict-detection
// logic reads the same error shape lib/pq returns.
func pqErrorCode(err error) string {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return ""
	}
	return string(pqErr.Code)
}
