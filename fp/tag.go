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

import "fmt"

// Tag is a 128-bit fingerprint in permuted (safe-to-refingerprint) form.
// The zero Tag is not the fingerprint of the empty string; use Init(nil)
// for that.
type Tag Poly

// matrices A and B = A^-1 (mod 2^64), and the byte substitution perm and its
// inverse perminv. Permute applies perm then multiplies by A; Unpermute
// multiplies by B then applies perminv. These constants exist only so that
// tags of tags satisfy the same probabilistic-uniqueness guarantee that raw
// fingerprints of raw fingerprints do not.
var (
	matA = [2][2]uint64{
		{0xce36f163f737a677, 0x431bf4ecc646b337},
		{0x1960326fa38d04d0, 0x10155f23a2f024f9},
	}
	matB = [2][2]uint64{
		{0x94033a389a279d77, 0xd79f3b15576598a7},
		{0x67f2d59b2369b1d0, 0x063e096e4228c019},
	}

	perm = [256]byte{
		89, 171, 235, 183, 176, 181, 91, 54, 49,
		151, 11, 0, 73, 138, 118, 160, 172, 251, 255, 192, 102, 39, 15, 169,
		149, 110, 240, 133, 213, 196, 217, 199, 29, 43, 52, 153, 32, 2, 179,
		6, 211, 165, 161, 224, 194, 209, 8, 93, 197, 162, 207, 229, 83, 247,
		129, 188, 145, 186, 59, 147, 202, 109, 141, 78, 38, 92, 68, 190,
		252, 116, 85, 184, 34, 103, 88, 140, 123, 76, 131, 67, 26, 166, 185,
		63, 90, 86, 5, 246, 58, 238, 231, 232, 241, 106, 7, 225, 75, 45,
		146, 19, 23, 99, 9, 216, 96, 236, 95, 218, 182, 40, 124, 201, 82,
		230, 214, 206, 107, 137, 249, 212, 77, 119, 253, 1, 210, 35, 69,
		167, 79, 4, 198, 180, 226, 122, 128, 244, 163, 250, 121, 55, 135,
		14, 154, 100, 243, 187, 173, 3, 46, 33, 157, 42, 152, 51, 30, 142,
		98, 48, 148, 254, 223, 159, 41, 74, 155, 248, 205, 18, 175, 108, 56,
		228, 195, 17, 237, 104, 62, 47, 12, 72, 158, 25, 134, 234, 239, 242,
		80, 143, 101, 203, 81, 215, 10, 27, 204, 24, 37, 191, 105, 208, 132,
		126, 50, 156, 227, 125, 65, 130, 139, 136, 31, 44, 97, 94, 53, 127,
		233, 221, 84, 117, 220, 219, 200, 164, 120, 20, 113, 22, 168, 66,
		170, 87, 150, 70, 193, 189, 177, 28, 36, 114, 178, 13, 71, 64, 115,
		16, 144, 57, 245, 111, 222, 60, 174, 61, 112, 21,
	}

	perminv = [256]byte{
		11, 123, 37, 147, 129, 86, 39, 94, 46, 102, 192, 10,
		178, 241, 141, 22, 245, 173, 167, 99, 225, 255, 227, 100, 195, 181,
		80, 193, 237, 32, 154, 210, 36, 149, 72, 125, 238, 196, 64, 21, 109,
		162, 151, 33, 211, 97, 148, 177, 157, 8, 202, 153, 34, 214, 7, 139,
		170, 247, 88, 58, 251, 253, 176, 83, 243, 206, 229, 79, 66, 126,
		233, 242, 179, 12, 163, 96, 77, 120, 63, 128, 186, 190, 112, 52,
		218, 70, 85, 231, 74, 0, 84, 6, 65, 47, 213, 106, 104, 212, 156,
		101, 143, 188, 20, 73, 175, 198, 93, 116, 169, 61, 25, 249, 254,
		226, 239, 244, 69, 219, 14, 121, 224, 138, 133, 76, 110, 205, 201,
		215, 134, 54, 207, 78, 200, 27, 182, 140, 209, 117, 13, 208, 75, 62,
		155, 187, 246, 56, 98, 59, 158, 24, 232, 9, 152, 35, 142, 164, 203,
		150, 180, 161, 15, 42, 49, 136, 223, 41, 81, 127, 228, 23, 230, 1,
		16, 146, 252, 168, 4, 236, 240, 38, 131, 5, 108, 3, 71, 82, 57, 145,
		55, 235, 67, 197, 19, 234, 44, 172, 29, 48, 130, 31, 222, 111, 60,
		189, 194, 166, 115, 50, 199, 45, 124, 40, 119, 28, 114, 191, 103,
		30, 107, 221, 220, 217, 250, 160, 43, 95, 132, 204, 171, 51, 113,
		90, 91, 216, 183, 2, 105, 174, 89, 184, 26, 92, 185, 144, 135, 248,
		87, 53, 165, 118, 137, 17, 68, 122, 159, 18,
	}
)

// permuteBytes applies sub to each of the ByteCnt bytes of a raw fingerprint
// read out in ascending-word little-endian order (the same order ToBytes
// uses), then reassembles the two words.
func permuteBytes(f Poly, sub *[256]byte) Poly {
	var b [ByteCnt]byte
	wordToLE(f[0], b[0:8])
	wordToLE(f[1], b[8:16])
	for i := range b {
		b[i] = sub[b[i]]
	}
	var out Poly
	out[0] = leToWord(b[0:8])
	out[1] = leToWord(b[8:16])
	return out
}

func wordToLE(w uint64, dst []byte) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(w >> (8 * uint(i)))
	}
}

func leToWord(src []byte) uint64 {
	var w uint64
	for i := 0; i < 8; i++ {
		w |= uint64(src[i]) << (8 * uint(i))
	}
	return w
}

// permute turns a raw fingerprint into a Tag: substitute every byte via
// perm, then multiply the result (as a 2-vector of words) by matrix A.
func permute(f Poly) Tag {
	s := permuteBytes(f, &perm)
	return Tag{
		s[0]*matA[0][0] + s[1]*matA[1][0],
		s[0]*matA[0][1] + s[1]*matA[1][1],
	}
}

// unpermute is the inverse of permute: multiply by B = A^-1, then substitute
// every byte via perminv.
func unpermute(t Tag) RawFP {
	var m Poly
	m[0] = t[0]*matB[0][0] + t[1]*matB[1][0]
	m[1] = t[0]*matB[0][1] + t[1]*matB[1][1]
	return permuteBytes(m, &perminv)
}

// Init computes the tag of s from scratch.
func Init(s []byte) Tag {
	raw := polyOne
	rawFPExtend(&raw, s)
	return permute(raw)
}

// Extend returns the tag of the receiver's string concatenated with s.
func (t Tag) Extend(s []byte) Tag {
	raw := unpermute(t)
	rawFPExtend(&raw, s)
	return permute(raw)
}

// ExtendByte returns the tag of the receiver's string with one byte c
// appended.
func (t Tag) ExtendByte(c byte) Tag {
	ensureByteModTable()
	raw := unpermute(t)
	extendByBytes(&raw, []byte{c})
	return permute(raw)
}

// ExtendRaw extends an already-unpermuted raw fingerprint by s in place.
// Callers must bracket a batch of ExtendRaw calls with Unpermute before and
// Permute after; intermixing permuted and raw operations on the same value
// is an unchecked error, exactly as in the original fingerprint package.
func ExtendRaw(raw *RawFP, s []byte) {
	rawFPExtend(raw, s)
}

// ExtendRawByte is the single-byte form of ExtendRaw.
func ExtendRawByte(raw *RawFP, c byte) {
	ensureByteModTable()
	extendByBytes(raw, []byte{c})
}

// Permute converts a raw fingerprint into its Tag form.
func Permute(raw RawFP) Tag { return permute(raw) }

// Unpermute recovers the raw fingerprint underlying a Tag.
func Unpermute(t Tag) RawFP { return unpermute(t) }

// ToBytes emits the tag as 16 bytes in ascending-word, little-endian
// within-word order. This representation is stable across all platforms.
func (t Tag) ToBytes() [ByteCnt]byte {
	var b [ByteCnt]byte
	wordToLE(t[0], b[0:8])
	wordToLE(t[1], b[8:16])
	return b
}

// FromBytes is the exact inverse of ToBytes.
func FromBytes(b []byte) Tag {
	return Tag{leToWord(b[0:8]), leToWord(b[8:16])}
}

// Compare defines a total order over tags: word 0 is compared first, then
// word 1. Compare(a,b) == 0 iff a == b.
func Compare(a, b Tag) int {
	for i := 0; i < WordCnt; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Hash folds a tag down to a single word, suitable for use as a hash table
// key.
func (t Tag) Hash() uint64 {
	return t[0] ^ t[1]
}

// String renders a tag as two 16-digit hex words separated by a space.
func (t Tag) String() string {
	return fmt.Sprintf("%016x %016x", t[0], t[1])
}
