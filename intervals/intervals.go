// halcyon: a haplotype-based germline small-variant caller.
// Copyright (c) 2021 the halcyon authors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/halcyon-genomics/halcyon/blob/master/LICENSE.txt>.

package intervals

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Interval is a half-open [Start, End) stretch of a contig.
type Interval struct {
	Contig     string
	Start, End int32
}

// New creates an interval, checking that End >= Start.
func New(contig string, start, end int32) (Interval, error) {
	interval := Interval{Contig: contig, Start: start, End: end}
	if end < start {
		return interval, fmt.Errorf("interval end %v before start %v on contig %v", end, start, contig)
	}
	return interval, nil
}

// Size returns the number of positions the interval covers.
func (interval Interval) Size() int32 {
	return interval.End - interval.Start
}

// Overlaps tells whether two intervals share at least one position.
func (interval Interval) Overlaps(other Interval) bool {
	return interval.Contig == other.Contig &&
		interval.Start < other.End && other.Start < interval.End
}

// Contains tells whether other falls completely inside this interval.
func (interval Interval) Contains(other Interval) bool {
	return interval.Contig == other.Contig &&
		interval.Start <= other.Start && interval.End >= other.End
}

// SpanWith returns the smallest interval covering both intervals.
func (interval Interval) SpanWith(other Interval) (Interval, error) {
	if interval.Contig != other.Contig {
		return Interval{}, fmt.Errorf("cannot span intervals on contigs %v and %v", interval.Contig, other.Contig)
	}
	result := interval
	if other.Start < result.Start {
		result.Start = other.Start
	}
	if other.End > result.End {
		result.End = other.End
	}
	return result, nil
}

// Expand grows the interval symmetrically by padding positions,
// saturating at position 0.
func (interval Interval) Expand(padding int32) Interval {
	start := interval.Start - padding
	if start < 0 {
		start = 0
	}
	return Interval{Contig: interval.Contig, Start: start, End: interval.End + padding}
}

// String formats the interval as contig:start-end.
func (interval Interval) String() string {
	return fmt.Sprintf("%v:%v-%v", interval.Contig, interval.Start, interval.End)
}

// separators accepted by Parse
const (
	contigSeparator   = ':'
	beginEndSeparator = '-'
	endOfContig       = '+'
	digitSeparator    = ","
)

// Parse parses an interval string of the form contig, contig:pos,
// contig:pos+, or contig:begin-end. Digit separator commas inside the
// positions are ignored.
func Parse(s string) (Interval, error) {
	colon := strings.IndexByte(s, contigSeparator)
	if colon < 0 {
		return Interval{Contig: s, Start: 0, End: math.MaxInt32}, nil
	}
	contig := s[:colon]
	remain := strings.ReplaceAll(s[colon+1:], digitSeparator, "")
	dash := strings.IndexByte(remain, beginEndSeparator)
	if dash < 0 {
		openEnd := false
		if len(remain) > 0 && remain[len(remain)-1] == endOfContig {
			openEnd = true
			remain = remain[:len(remain)-1]
		}
		begin, err := strconv.ParseInt(remain, 10, 32)
		if err != nil {
			return Interval{}, fmt.Errorf("invalid interval string %v: %v", s, err)
		}
		if openEnd {
			return Interval{Contig: contig, Start: int32(begin), End: math.MaxInt32}, nil
		}
		return Interval{Contig: contig, Start: int32(begin), End: int32(begin) + 1}, nil
	}
	begin, err := strconv.ParseInt(remain[:dash], 10, 32)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval string %v: %v", s, err)
	}
	end, err := strconv.ParseInt(remain[dash+1:], 10, 32)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval string %v: %v", s, err)
	}
	return New(contig, int32(begin), int32(end))
}
