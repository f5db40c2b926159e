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

package source

import (
	"errors"
	"fmt"
)

// ErrorCode is the result of a repository operation that did not return a
// value: either Ok, or one of the logical/transport error codes the
// protocols distinguish on.
type ErrorCode int

const (
	Ok ErrorCode = iota
	NotFound
	NoPermission
	NameInUse
	InappropriateOp
	NameTooLong
	RPCFailureCode
	NotADirectory
	IsADirectory
	InvalidArgs
	OutOfSpace
	NotMaster
	LongIdOverflow
)

func (c ErrorCode) String() string {
	switch c {
	case Ok:
		return "ok"
	case NotFound:
		return "notFound"
	case NoPermission:
		return "noPermission"
	case NameInUse:
		return "nameInUse"
	case InappropriateOp:
		return "inappropriateOp"
	case NameTooLong:
		return "nameTooLong"
	case RPCFailureCode:
		return "rpcFailure"
	case NotADirectory:
		return "notADirectory"
	case IsADirectory:
		return "isADirectory"
	case InvalidArgs:
		return "invalidArgs"
	case OutOfSpace:
		return "outOfSpace"
	case NotMaster:
		return "notMaster"
	case LongIdOverflow:
		return "longIdOverflow"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// CodeError is a logical or transport failure carrying one of the error
// codes above. It implements errors.Is by code, so callers can test
// `errors.Is(err, source.ErrRPCFailure)` without caring about the message.
type CodeError struct {
	Code ErrorCode
	Msg  string
}

func (e *CodeError) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is reports whether target is a *CodeError with the same Code, regardless
// of Msg; this lets errors.Is match against the canonical sentinels below.
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError builds a CodeError with an explanatory message.
func NewError(code ErrorCode, msg string) error {
	return &CodeError{Code: code, Msg: msg}
}

// NewErrorf builds a CodeError with a formatted explanatory message.
func NewErrorf(code ErrorCode, format string, args ...any) error {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Canonical sentinels for errors.Is comparisons. RPC failure is singled
// out because, unlike every other code, it may have been observed after
// the peer already committed a durable change: it is the one case the
// mastership recovery path must schedule for retry rather than treat as
// "did not happen".
var (
	ErrRPCFailure      = &CodeError{Code: RPCFailureCode}
	ErrNotFound        = &CodeError{Code: NotFound}
	ErrNoPermission    = &CodeError{Code: NoPermission}
	ErrNameInUse       = &CodeError{Code: NameInUse}
	ErrInappropriateOp = &CodeError{Code: InappropriateOp}
	ErrNameTooLong     = &CodeError{Code: NameTooLong}
	ErrNotADirectory   = &CodeError{Code: NotADirectory}
	ErrIsADirectory    = &CodeError{Code: IsADirectory}
	ErrInvalidArgs     = &CodeError{Code: InvalidArgs}
	ErrOutOfSpace      = &CodeError{Code: OutOfSpace}
	ErrNotMaster       = &CodeError{Code: NotMaster}
	ErrLongIdOverflow  = &CodeError{Code: LongIdOverflow}
)

// CodeOf extracts the ErrorCode from err, if it (or something it wraps) is
// a *CodeError. The second result is false for any other error (including
// nil).
func CodeOf(err error) (ErrorCode, bool) {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return Ok, false
	}
	return ce.Code, true
}
