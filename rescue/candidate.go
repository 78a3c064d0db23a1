// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package rescue

import (
	"strconv"
	"strings"

	"github.com/siderolabs/gen/xerrors"

	"github.com/siderolabs/go-partrescue/geometry"
)

// Candidate is a region which is believed to have once held a partition.
type Candidate struct {
	// PartitionNumber is not interpreted, it is returned back with the recovered partition.
	PartitionNumber  int
	ApproximateStart uint64
	ApproximateEnd   uint64
}

// NewCandidate validates the region and creates a new Candidate.
//
// Sectors are not checked against the device, as the device might change before the candidate is used.
func NewCandidate(number int, start, end uint64) (Candidate, error) {
	if start > end {
		return Candidate{}, xerrors.NewTaggedf[InputError]("candidate %d: start %d is past end %d", number, start, end)
	}

	return Candidate{
		PartitionNumber:  number,
		ApproximateStart: start,
		ApproximateEnd:   end,
	}, nil
}

// ParseCandidate parses a candidate from (number, start, end) fields.
//
// Extra fields are ignored.
func ParseCandidate(fields []string) (Candidate, error) {
	if len(fields) < 3 {
		return Candidate{}, xerrors.NewTaggedf[InputError]("candidate %q: expected 3 fields, got %d", fields, len(fields))
	}

	number, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Candidate{}, xerrors.NewTaggedf[InputError]("candidate %q: invalid partition number: %w", fields, err)
	}

	start, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return Candidate{}, xerrors.NewTaggedf[InputError]("candidate %q: invalid start sector: %w", fields, err)
	}

	end, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return Candidate{}, xerrors.NewTaggedf[InputError]("candidate %q: invalid end sector: %w", fields, err)
	}

	return NewCandidate(number, start, end)
}

// ParseCandidateSpec parses a candidate in the "number:start:end" form.
func ParseCandidateSpec(spec string) (Candidate, error) {
	return ParseCandidate(strings.Split(spec, ":"))
}

// ParseCandidates parses a list of triples, failing on the first malformed one.
func ParseCandidates(triples [][]string) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(triples))

	for _, fields := range triples {
		c, err := ParseCandidate(fields)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, c)
	}

	return candidates, nil
}

// Range returns the region as a sector range.
func (c Candidate) Range() geometry.Range {
	return geometry.Range{Start: c.ApproximateStart, End: c.ApproximateEnd}
}

// searchLimit returns the first start sector which is not tried for the candidate.
//
// Only the first tenth of the region is searched.
func (c Candidate) searchLimit() uint64 {
	return c.ApproximateStart + (c.ApproximateEnd-c.ApproximateStart)/10
}
