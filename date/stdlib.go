// Copyright (c) 2009 The Go Authors. All rights reserved.
// Copyright (c) 2022 Sneller, Inc.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are
// met:
//
//    * Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//    * Redistributions in binary form must reproduce the above
// copyright notice, this list of conditions and the following disclaimer
// in the documentation and/or other materials provided with the
// distribution.
//    * Neither the name of Google Inc. nor the names of its
// contributors may be used to endorse or promote products derived from
// this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
// "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
// LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
// A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
// OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
// LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
// DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
// THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
// (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

package date

import (
	"errors"
	"strconv"
)

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.Year() >= 10000 {
		return nil, errors.New("date.MarshalJSON: year outside of range [0,9999]")
	}
	b := make([]byte, 0, 37)
	b = append(b, '"')
	b = t.AppendRFC3339Nano(b)
	b = append(b, '"')
	return b, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return errors.New("date.UnmarshalJSON: expected a string")
	}
	var ok bool
	*t, ok = Parse(b[1 : len(b)-1])
	if !ok {
		return errors.New("date.UnmarshalJSON: failed to parse")
	}
	return nil
}

func isleap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func norm(hi, lo, base int) (nhi, nlo int) {
	if lo < 0 {
		n := (-lo-1)/base + 1
		hi -= n
		lo += n * base
	}
	if lo >= base {
		n := lo / base
		hi += n
		lo -= n * base
	}
	return hi, lo
}

// parse is the scanner behind Parse: a small
// hand-rolled RFC3339-ish scanner. It accepts a 'T' or
// a plain space between the date and time portions,
// tolerates a missing offset (treated as UTC), and
// folds any explicit offset into the returned fields by
// subtracting it from the seconds component; Date's
// normalization takes care of the resulting carry/borrow
// across minute/hour/day/month/year.
func parse(data []byte) (year, month, day, hour, min, sec, ns int, ok bool) {
	s := trimSpace(data)
	if len(s) < 10 {
		return 0, 0, 0, 0, 0, 0, 0, false
	}
	year, ok1 := fixedDigits(s[0:4])
	month, ok2 := fixedDigits(s[5:7])
	day, ok3 := fixedDigits(s[8:10])
	if !ok1 || !ok2 || !ok3 || s[4] != '-' || s[7] != '-' {
		return 0, 0, 0, 0, 0, 0, 0, false
	}
	if len(s) == 10 {
		return year, month, day, 0, 0, 0, 0, true
	}
	if s[10] != 'T' && s[10] != ' ' && s[10] != 't' {
		return 0, 0, 0, 0, 0, 0, 0, false
	}
	rest := s[11:]
	if len(rest) < 5 || rest[2] != ':' {
		return 0, 0, 0, 0, 0, 0, 0, false
	}
	hour, ok4 := fixedDigits(rest[0:2])
	min, ok5 := fixedDigits(rest[3:5])
	if !ok4 || !ok5 {
		return 0, 0, 0, 0, 0, 0, 0, false
	}
	i := 5
	if i < len(rest) && rest[i] == ':' {
		if len(rest) < i+3 {
			return 0, 0, 0, 0, 0, 0, 0, false
		}
		s2, ok6 := fixedDigits(rest[i+1 : i+3])
		if !ok6 {
			return 0, 0, 0, 0, 0, 0, 0, false
		}
		sec = s2
		i += 3
	}
	if i < len(rest) && rest[i] == '.' {
		j := i + 1
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		frac := rest[i+1 : j]
		if len(frac) == 0 {
			return 0, 0, 0, 0, 0, 0, 0, false
		}
		padded := (string(frac) + "000000000")[:9]
		n, err := strconv.Atoi(padded)
		if err != nil {
			return 0, 0, 0, 0, 0, 0, 0, false
		}
		ns = n
		i = j
	}
	offsetSec := 0
	if i < len(rest) {
		switch rest[i] {
		case 'Z', 'z':
			i++
		case '+', '-':
			sign := 1
			if rest[i] == '-' {
				sign = -1
			}
			i++
			if len(rest) < i+5 || rest[i+2] != ':' {
				return 0, 0, 0, 0, 0, 0, 0, false
			}
			oh, ok7 := fixedDigits(rest[i : i+2])
			om, ok8 := fixedDigits(rest[i+3 : i+5])
			if !ok7 || !ok8 {
				return 0, 0, 0, 0, 0, 0, 0, false
			}
			offsetSec = sign * (oh*3600 + om*60)
			i += 5
		default:
			return 0, 0, 0, 0, 0, 0, 0, false
		}
	}
	if i != len(rest) {
		return 0, 0, 0, 0, 0, 0, 0, false
	}
	sec -= offsetSec
	return year, month, day, hour, min, sec, ns, true
}

// trimSpace strips leading/trailing ASCII whitespace without
// pulling in strings.TrimSpace for a handful of byte comparisons.
func trimSpace(b []byte) []byte {
	for len(b) > 0 && isSpace(b[0]) {
		b = b[1:]
	}
	for len(b) > 0 && isSpace(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// fixedDigits parses b as an unsigned decimal integer, requiring
// every byte to be a digit (unlike strconv.Atoi, which accepts a
// leading sign).
func fixedDigits(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// parseDuration scans a calendar-duration literal of the form
// [<digits>y][<digits>m][<digits>d], components in that fixed
// order and each optional; year is capped at 3 digits, month at
// 4, and day at 5 (matching the largest expiries this package's
// callers need to express). Any leftover, out-of-order, or
// over-long component makes the whole literal invalid.
func parseDuration(data []byte) (year, month, day int, ok bool) {
	pos := 0
	read := func(maxDigits int, unit byte) (int, bool) {
		start := pos
		for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
			pos++
		}
		digits := data[start:pos]
		if len(digits) == 0 || len(digits) > maxDigits || pos >= len(data) || data[pos] != unit {
			pos = start
			return 0, false
		}
		n, err := strconv.Atoi(string(digits))
		if err != nil {
			pos = start
			return 0, false
		}
		pos++ // consume the unit byte
		return n, true
	}
	if y, present := read(3, 'y'); present {
		year = y
	}
	if m, present := read(4, 'm'); present {
		month = m
	}
	if d, present := read(5, 'd'); present {
		day = d
	}
	return year, month, day, pos == len(data)
}
