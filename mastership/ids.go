// Copyright 2024 The Vesta Authors
// This file is part of Vesta.
//
// Vesta is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Vesta is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Vesta. If not, see <http://www.gnu.org/licenses/>.

package mastership

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/vesta-scm/vesta/fp"
)

// RequestID is the destination-side in-progress-transfer token: a fresh
// unique id, the time it was minted, and both endpoints of the transfer.
type RequestID struct {
	UID         string
	Timestamp   int64
	SrcHostPort string
	DstHostPort string
}

// NewRequestID mints a RequestID from a fresh unique-id tag.
func NewRequestID(uid fp.Tag, ts int64, srcHostPort, dstHostPort string) RequestID {
	b := uid.ToBytes()
	return RequestID{
		UID:         hex.EncodeToString(b[:]),
		Timestamp:   ts,
		SrcHostPort: srcHostPort,
		DstHostPort: dstHostPort,
	}
}

// String renders the wire form: "<hex-uid> <ts> <srcHost:Port> <dstHost:Port>".
func (r RequestID) String() string {
	return fmt.Sprintf("%s %d %s %s", r.UID, r.Timestamp, r.SrcHostPort, r.DstHostPort)
}

// ParseRequestID decodes the wire form produced by String.
func ParseRequestID(s string) (RequestID, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return RequestID{}, fmt.Errorf("mastership: malformed requestid %q", s)
	}
	ts, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return RequestID{}, fmt.Errorf("mastership: malformed requestid timestamp %q: %w", fields[1], err)
	}
	return RequestID{UID: fields[0], Timestamp: ts, SrcHostPort: fields[2], DstHostPort: fields[3]}, nil
}

// ChildHint is one entry of a grantid's child list: the arc name, the
// master-repository hint to adopt, and the timestamp it was last set.
type ChildHint struct {
	Arc       string
	Hint      string
	Timestamp int64
}

// SplitGrantID separates a grantid into its requestid prefix and the
// trailing child-hint list (empty for non-directories).
func SplitGrantID(grantid string) (requestid string, hints []ChildHint, err error) {
	fields := strings.SplitN(grantid, " ", 5)
	if len(fields) < 4 {
		return "", nil, fmt.Errorf("mastership: malformed grantid %q", grantid)
	}
	requestid = strings.Join(fields[:4], " ")
	if len(fields) < 5 || fields[4] == "" {
		return requestid, nil, nil
	}
	hints, err = parseChildList(fields[4])
	return requestid, hints, err
}

// parseChildList decodes "arc1/hint1/t1/arc2/hint2/t2/..." (always
// ending in a trailing '/') into ChildHint triples.
func parseChildList(list string) ([]ChildHint, error) {
	list = strings.TrimSuffix(list, "/")
	if list == "" {
		return nil, nil
	}
	parts := strings.Split(list, "/")
	if len(parts)%3 != 0 {
		return nil, fmt.Errorf("mastership: malformed child list %q", list)
	}
	hints := make([]ChildHint, 0, len(parts)/3)
	for i := 0; i < len(parts); i += 3 {
		ts, err := strconv.ParseInt(parts[i+2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mastership: malformed child timestamp %q: %w", parts[i+2], err)
		}
		hints = append(hints, ChildHint{Arc: parts[i], Hint: parts[i+1], Timestamp: ts})
	}
	return hints, nil
}

// FormatChildList is the inverse of parseChildList, used source-side
// when building a grantid.
func FormatChildList(hints []ChildHint) string {
	var b strings.Builder
	for _, h := range hints {
		fmt.Fprintf(&b, "%s/%s/%d/", h.Arc, h.Hint, h.Timestamp)
	}
	return b.String()
}

// ValidHostPort sanity-checks a "host:port" string per A1: the host
// portion must contain a '.' and neither half may contain a space or
// slash.
func ValidHostPort(hostPort string) bool {
	if strings.ContainsAny(hostPort, " /") {
		return false
	}
	i := strings.LastIndexByte(hostPort, ':')
	if i <= 0 || i == len(hostPort)-1 {
		return false
	}
	host := hostPort[:i]
	return strings.Contains(host, ".")
}
