// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

package assertion

import "regexp"

// EORI numbers within iSHARE are 'EU.EORI.' followed by a two letter country
// code and 1 to 15 digits. The whole identifier must match, substrings don't.
var eoriPattern = regexp.MustCompile(`^EU\.EORI\.[A-Z]{2}[0-9]{1,15}$`)

// IsValidEORI reports whether eori is acceptable as an iSHARE participant
// identifier. An empty identifier is never valid. With strict set to false any
// non-empty identifier passes; use this when the connecting satellite does not
// enforce the EORI registry format.
func IsValidEORI(eori string, strict bool) bool {
	if eori == "" {
		return false
	}
	if !strict {
		return true
	}
	return eoriPattern.MatchString(eori)
}
