/*
coverage.go - Line 14 / Line 15 code resolver

PURPOSE:
  Maps FTE status and coverage facts to Form 1095-C codes. The mapping is a
  decision table: rows are matched top to bottom with wildcards, then
  expanded once into an exhaustive lookup over every possible key. Adding a
  code is one new row.

TABLE:
  full-time | offer state | dependents | spouse | Line 14 | Line 15
  ----------+-------------+------------+--------+---------+--------
  no        | *           | *          | *      | 1G      | 2B
  yes       | no data     | *          | *      | 1A      | -
  yes       | not offered | *          | *      | 1H      | -
  yes       | enrolled    | yes        | yes    | 1J      | 2C
  yes       | enrolled    | yes        | no     | 1E      | 2C
  yes       | enrolled    | no         | yes    | 1K      | 2C
  yes       | enrolled    | no         | no     | 1F      | 2C
  yes       | declined    | *          | *      | 1E      | -

NOTE:
  "no data -> 1A" is a conservative placeholder that callers override as soon
  as real enrollment data arrives; the assessment carries an advisory issue.
*/
package aca

import "fmt"

// offerState collapses CoverageData into the table's offer dimension.
type offerState int

const (
	offerNoData offerState = iota
	offerNotMade
	offerDeclined
	offerEnrolled
)

var allOfferStates = []offerState{offerNoData, offerNotMade, offerDeclined, offerEnrolled}

func offerStateOf(cov *CoverageData) offerState {
	switch {
	case cov == nil:
		return offerNoData
	case !cov.OfferMade:
		return offerNotMade
	case cov.Enrolled:
		return offerEnrolled
	default:
		return offerDeclined
	}
}

// codeKey is one cell of the exhaustive lookup.
type codeKey struct {
	fullTime   bool
	offer      offerState
	dependents bool
	spouse     bool
}

// match is a tri-state column value.
type match int

const (
	matchAny match = iota
	matchYes
	matchNo
)

func (m match) accepts(v bool) bool {
	return m == matchAny || (m == matchYes) == v
}

type codeRow struct {
	fullTime   match
	offer      []offerState // nil = any
	dependents match
	spouse     match
	line14     OfferCode
	line15     SafeHarborCode // "" = none
}

func (r codeRow) matches(k codeKey) bool {
	if !r.fullTime.accepts(k.fullTime) || !r.dependents.accepts(k.dependents) || !r.spouse.accepts(k.spouse) {
		return false
	}
	if r.offer == nil {
		return true
	}
	for _, s := range r.offer {
		if s == k.offer {
			return true
		}
	}
	return false
}

var codeRows = []codeRow{
	{fullTime: matchNo, line14: Code1G, line15: Code2B},
	{fullTime: matchYes, offer: []offerState{offerNoData}, line14: Code1A},
	{fullTime: matchYes, offer: []offerState{offerNotMade}, line14: Code1H},
	{fullTime: matchYes, offer: []offerState{offerEnrolled}, dependents: matchYes, spouse: matchYes, line14: Code1J, line15: Code2C},
	{fullTime: matchYes, offer: []offerState{offerEnrolled}, dependents: matchYes, spouse: matchNo, line14: Code1E, line15: Code2C},
	{fullTime: matchYes, offer: []offerState{offerEnrolled}, dependents: matchNo, spouse: matchYes, line14: Code1K, line15: Code2C},
	{fullTime: matchYes, offer: []offerState{offerEnrolled}, dependents: matchNo, spouse: matchNo, line14: Code1F, line15: Code2C},
	{fullTime: matchYes, offer: []offerState{offerDeclined}, line14: Code1E},
}

// CodeResolution is the resolved Line 14/15 pair.
type CodeResolution struct {
	Line14 OfferCode
	Line15 *SafeHarborCode
}

// codeTable is the exhaustive expansion of codeRows.
var codeTable = expandCodeRows(codeRows)

func expandCodeRows(rows []codeRow) map[codeKey]codeRow {
	table := make(map[codeKey]codeRow)
	for _, ft := range []bool{false, true} {
		for _, offer := range allOfferStates {
			for _, dep := range []bool{false, true} {
				for _, sp := range []bool{false, true} {
					k := codeKey{fullTime: ft, offer: offer, dependents: dep, spouse: sp}
					for _, row := range rows {
						if row.matches(k) {
							table[k] = row
							break
						}
					}
					if _, ok := table[k]; !ok {
						panic(fmt.Sprintf("aca: coverage code table has no row for %+v", k))
					}
				}
			}
		}
	}
	return table
}

// ResolveCodes returns the Line 14/15 codes. cov is nil when no coverage
// data was supplied.
func (e *Engine) ResolveCodes(fte FTEDetermination, cov *CoverageData) CodeResolution {
	k := codeKey{fullTime: fte.Status == FTEFullTime, offer: offerStateOf(cov)}
	if cov != nil {
		k.dependents = cov.CoversDependents
		k.spouse = cov.CoversSpouse
	}
	row := codeTable[k]
	res := CodeResolution{Line14: row.line14}
	if row.line15 != "" {
		code := row.line15
		res.Line15 = &code
	}
	return res
}
