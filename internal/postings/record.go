// Package postings turns the job table of a README section into typed records
// and computes the identities used to detect changes between checks.
package postings

// Record is one job posting row.
type Record struct {
	Company  string `json:"company"`
	Role     string `json:"role"`
	Location string `json:"location"`
	// Age is the free-text recency column ("3d", "1mo", ...), it is never parsed.
	Age  string `json:"age"`
	Link string `json:"link"`
}

// Identity is the stable key of the record, see Identity.
func (r Record) Identity() string {
	return Identity(r.Company, r.Role, r.Location)
}
