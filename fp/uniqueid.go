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

package fp

import (
	"encoding/binary"
	"math/bits"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var (
	uniqueIDOnce   sync.Once
	uniqueIDPrefix Tag

	uniqueIDMu    sync.Mutex
	uniqueIDCount uint64
)

// buildPrefix computes the process-wide UniqueID prefix once at first use:
// the fingerprint of hostid + hostname + resolved IP + pid + ppid + pgid +
// time-of-day. Using all of these is deliberate overkill against the case
// where no single one of them distinguishes two hosts or processes.
func buildPrefix() Tag {
	t := Init(nil)

	if hostid, err := readHostID(); err == nil {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], hostid)
		t = t.Extend(b[:])
	}

	if hostname, err := os.Hostname(); err == nil {
		t = t.Extend([]byte(hostname))
		if addrs, err := net.LookupHost(hostname); err == nil && len(addrs) > 0 {
			if ip := net.ParseIP(addrs[0]).To4(); ip != nil {
				t = t.Extend(ip)
			}
		}
	}

	t = t.Extend(int32Bytes(int32(os.Getpid())))
	t = t.Extend(int32Bytes(int32(os.Getppid())))
	if pgid, err := unix.Getpgid(os.Getpid()); err == nil {
		t = t.Extend(int32Bytes(int32(pgid)))
	}

	var tb [8]byte
	binary.LittleEndian.PutUint64(tb[:], uint64(time.Now().Unix()))
	t = t.Extend(tb[:])

	return t
}

func int32Bytes(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

// readHostID returns a best-effort per-host identifier. Linux has no
// gethostid(3) equivalent in golang.org/x/sys/unix; the machine id file it
// exposes via the kernel is the closest stable per-host value, so we hash
// it down to a uint64. If unavailable, the caller simply skips this
// contribution to the prefix.
func readHostID() (uint64, error) {
	data, err := os.ReadFile("/etc/machine-id")
	if err != nil {
		data, err = os.ReadFile("/var/lib/dbus/machine-id")
		if err != nil {
			return 0, err
		}
	}
	h := Init(data)
	return h.Hash(), nil
}

// UniqueID returns a fresh, probabilistically unique fingerprint tag: the
// process-wide prefix extended by the next value of a monotonically
// incrementing counter. The counter increments under a dedicated mutex and
// is byte-swapped on big-endian hosts so the rapidly changing bytes lead,
// matching how the original keeps the fast-changing bits first regardless
// of host endianness.
func UniqueID() Tag {
	uniqueIDOnce.Do(func() {
		uniqueIDPrefix = buildPrefix()
	})

	uniqueIDMu.Lock()
	n := uniqueIDCount
	uniqueIDCount++
	uniqueIDMu.Unlock()

	if isBigEndian {
		n = bits.ReverseBytes64(n)
	}

	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], n)
	return uniqueIDPrefix.Extend(b[:])
}

var isBigEndian = func() bool {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	return buf[0] != 1
}()
