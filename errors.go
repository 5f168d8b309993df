package evec

import (
	"errors"

	"github.com/evecdb/evec/internal/errs"
)

// Error is the structured error type every fallible Index operation
// returns. Use errors.Is against the sentinel Err* Kind values below to
// branch on failure category rather than comparing strings.
type Error = errs.Error

// Kind discriminates an Error's category.
type Kind = errs.Kind

const (
	ErrDimensionMismatch   = errs.DimensionMismatch
	ErrNonFiniteValue      = errs.NonFiniteValue
	ErrIdNotFound          = errs.IdNotFound
	ErrIdAlreadyExists     = errs.IdAlreadyExists
	ErrInvalidId           = errs.InvalidId
	ErrNodeIdOutOfBounds   = errs.NodeIdOutOfBounds
	ErrFilterParse         = errs.FilterParse
	ErrFilterTypeMismatch  = errs.FilterTypeMismatch
	ErrCapacityExceeded    = errs.CapacityExceeded
	ErrIo                  = errs.Io
	ErrInvalidMagic        = errs.InvalidMagic
	ErrUnsupportedVersion  = errs.UnsupportedVersion
	ErrChecksumMismatch    = errs.ChecksumMismatch
	ErrBufferTooShort      = errs.BufferTooShort
	ErrUnalignedBuffer     = errs.UnalignedBuffer
	ErrWalPayloadTooLarge  = errs.WalPayloadTooLarge
	ErrWalTruncated        = errs.WalTruncated
	ErrWalChecksumMismatch = errs.WalChecksumMismatch
)

// IsKind reports whether err (or anything it wraps) is an *Error of the
// given Kind.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &errs.Error{Kind: kind})
}
