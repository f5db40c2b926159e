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

// Package fp implements the Vesta 128-bit Rabin polynomial fingerprint:
// a content fingerprint over GF(2) modulo a fixed irreducible degree-128
// polynomial, plus the permutation that turns a raw fingerprint into a
// safely re-fingerprintable Tag.
package fp

import (
	"encoding/binary"
	"sync"
)

// WordBits is the bit width of one fingerprint word.
const WordBits = 64

// ByteCnt is the number of bytes in a fingerprint (two 64-bit words).
const ByteCnt = 16

// WordCnt is the number of words in a fingerprint.
const WordCnt = 2

// Poly is a two-word residue of a polynomial over GF(2) modulo the fixed
// irreducible polynomial polyIrred. RawFP is the same representation used
// for an unpermuted fingerprint in progress.
type Poly [WordCnt]uint64

// RawFP is an unpermuted fingerprint: safe to Extend repeatedly, unsafe to
// feed directly into another fingerprint (see Tag).
type RawFP = Poly

const (
	polyX63W  uint64 = 0x1
	polyOneW  uint64 = 0x8000000000000000
)

var (
	polyZero  = Poly{0, 0}
	polyOne   = Poly{0, polyOneW}
	polyIrred = Poly{0x2b590719937a25c7, 0x97e05773d6f3b9bc}
)

// polyInc is "p = p + q" over GF(2), i.e. bitwise XOR.
func polyInc(p *Poly, q Poly) {
	p[0] ^= q[0]
	p[1] ^= q[1]
}

// timesX sets p to p times X modulo polyIrred.
func timesX(p *Poly) {
	overflow := p[0]&polyX63W != 0
	p[0] >>= 1
	if p[1]&polyX63W != 0 {
		p[0] |= polyOneW
	}
	p[1] >>= 1
	if overflow {
		polyInc(p, polyIrred)
	}
}

// byteModTable[i][j] is (j << bits_remaining(i)) mod polyIrred, precomputed
// so that extension by a whole word collapses to 8 table lookups and XORs.
var byteModTable [8][256]Poly

var byteModTableOnce sync.Once

func initByteModTable() {
	var powerTable [256]Poly
	p := polyOne
	for i := 0; i < 256; i++ {
		powerTable[i] = p
		timesX(&p)
	}

	for i := 0; i < 8; i++ {
		for j := 0; j < 256; j++ {
			var acc Poly
			for k := 0; k < 8; k++ {
				if j&(1<<uint(k)) != 0 {
					polyInc(&acc, powerTable[191-(i*8)-k])
				}
			}
			byteModTable[i][j] = acc
		}
	}
}

// ensureByteModTable initializes byteModTable exactly once, safe to call
// from multiple goroutines.
func ensureByteModTable() {
	byteModTableOnce.Do(initByteModTable)
}

// extendByBytes changes p to be the residue mod P of the polynomial
// represented by p followed by the 1-7 bytes in src.
func extendByBytes(p *Poly, src []byte) {
	n := len(src)
	bits := uint(8 * n)
	var temp Poly
	mask := p[0]
	for i := 0; i < n; i++ {
		c0 := byte(mask)
		t := &byteModTable[i+8-n][c0]
		temp[0] ^= t[0]
		temp[1] ^= t[1]
		mask >>= 8
	}

	var word uint64
	for i := 0; i < n; i++ {
		word |= uint64(src[i]) << (8 * uint(i))
	}

	p[0] = (p[0] >> bits) | (p[1] << (WordBits - bits))
	p[1] = (p[1] >> bits) | (word << (WordBits - bits))
	p[0] ^= temp[0]
	p[1] ^= temp[1]
}

// extendByWords changes p to be the residue mod P of the polynomial
// represented by p followed by the words in src (each a little-endian
// 8-byte chunk of the stream being fingerprinted).
func extendByWords(p *Poly, src []uint64) {
	for i := 0; i < len(src); i++ {
		var temp Poly
		w0 := p[0]
		for k := 0; k < 8; k++ {
			t := &byteModTable[k][byte(w0)]
			temp[0] ^= t[0]
			temp[1] ^= t[1]
			w0 >>= 8
		}
		p[0] = p[1]
		p[1] = src[i]
		p[0] ^= temp[0]
		p[1] ^= temp[1]
	}
}

// rawFPExtend changes fp to be the fingerprint of the string it already
// represents, concatenated with data. Chunking data into whole words first
// and a byte remainder last is purely an optimization: because extension is
// defined byte-by-byte, the result does not depend on where the boundary
// between word-extension and byte-extension falls.
func rawFPExtend(fp *Poly, data []byte) {
	ensureByteModTable()

	n := len(data)
	nw := n / 8
	if nw > 0 {
		words := make([]uint64, nw)
		for i := 0; i < nw; i++ {
			words[i] = binary.LittleEndian.Uint64(data[i*8:])
		}
		extendByWords(fp, words)
	}
	rem := data[nw*8:]
	if len(rem) > 0 {
		extendByBytes(fp, rem)
	}
}
