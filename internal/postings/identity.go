package postings

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"slices"
)

const identitySeparator = "_"

// Identity hashes the (company, role, location) triple of a posting. Fields are expected
// to be normalized already (tags stripped, trimmed), two postings with the same triple
// share an identity.
func Identity(company, role, location string) string {
	sum := md5.Sum([]byte(company + identitySeparator + role + identitySeparator + location))
	return hex.EncodeToString(sum[:])
}

// Identities returns the sorted, de-duplicated identities of records.
func Identities(records []Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.Identity()
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Fingerprint digests the identity set of records. The result does not depend on the
// order of records and only changes when the set of identities does.
func Fingerprint(records []Record) string {
	return FingerprintIdentities(Identities(records))
}

// FingerprintIdentities digests an identity list that is already sorted and de-duplicated.
func FingerprintIdentities(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	// a []string always marshals
	serialized, _ := json.Marshal(ids)
	sum := md5.Sum(serialized)
	return hex.EncodeToString(sum[:])
}
