// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intents

import (
	"fmt"
	"strings"
)

// Failure codes surfaced to callers. Codes are stable and are part of the
// external API.
const (
	CodeInvalidSignature int32 = iota + 1
	CodeUnsupportedStandard
	CodeMalformedPayload
	CodeIntentExpired
	CodeNonceAlreadyUsed
	CodeUnbalanced
	CodeInsufficientBalance
	CodeArithmeticOverflow
	CodeUnknownAsset
	CodeInvalidIntent
	CodeWrongVerifyingContract
	CodeNonceExpired
	CodePublicKeyExists
	CodePublicKeyNotRegistered
	CodeStorageNotRegistered
	CodeNftAlreadyDeposited
	CodeInvalidAmount
)

// NoIndex is the Index of an Error that is not attributed to a single intent.
const NoIndex = -1

// Error is a typed settlement failure. Every failure aborts the call that
// produced it; nothing is applied.
type Error struct {
	Code    int32
	Message string

	// Index is the position of the offending intent in the submitted batch,
	// or NoIndex.
	Index   int
	Asset   string
	Account string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Index != NoIndex {
		fmt.Fprintf(&sb, " (intent %d)", e.Index)
	}
	if e.Account != "" {
		fmt.Fprintf(&sb, " account=%s", e.Account)
	}
	if e.Asset != "" {
		fmt.Fprintf(&sb, " asset=%s", e.Asset)
	}
	return sb.String()
}

// Is reports whether target carries the same failure code, so that
// errors.Is(err, ErrNonceAlreadyUsed) matches regardless of context fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithIndex returns a copy of e attributed to the intent at index i.
func (e *Error) WithIndex(i int) *Error {
	c := *e
	c.Index = i
	return &c
}

// WithAsset returns a copy of e naming asset.
func (e *Error) WithAsset(asset fmt.Stringer) *Error {
	c := *e
	c.Asset = asset.String()
	return &c
}

// WithAccount returns a copy of e naming account.
func (e *Error) WithAccount(account AccountID) *Error {
	c := *e
	c.Account = string(account)
	return &c
}

// Withf returns a copy of e with detail appended to the message.
func (e *Error) Withf(format string, args ...any) *Error {
	c := *e
	c.Message = e.Message + ": " + fmt.Sprintf(format, args...)
	return &c
}

func newError(code int32, msg string) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Index:   NoIndex,
	}
}

var (
	ErrInvalidSignature       = newError(CodeInvalidSignature, "invalid signature")
	ErrUnsupportedStandard    = newError(CodeUnsupportedStandard, "unsupported signing standard")
	ErrMalformedPayload       = newError(CodeMalformedPayload, "malformed payload")
	ErrIntentExpired          = newError(CodeIntentExpired, "intent expired")
	ErrNonceAlreadyUsed       = newError(CodeNonceAlreadyUsed, "nonce already used")
	ErrUnbalanced             = newError(CodeUnbalanced, "unbalanced")
	ErrInsufficientBalance    = newError(CodeInsufficientBalance, "insufficient balance")
	ErrArithmeticOverflow     = newError(CodeArithmeticOverflow, "arithmetic overflow")
	ErrUnknownAsset           = newError(CodeUnknownAsset, "unknown asset")
	ErrInvalidIntent          = newError(CodeInvalidIntent, "invalid intent")
	ErrWrongVerifyingContract = newError(CodeWrongVerifyingContract, "wrong verifying contract")
	ErrNonceExpired           = newError(CodeNonceExpired, "nonce expired")
	ErrPublicKeyExists        = newError(CodePublicKeyExists, "public key already exists")
	ErrPublicKeyNotRegistered = newError(CodePublicKeyNotRegistered, "public key not registered")
	ErrStorageNotRegistered   = newError(CodeStorageNotRegistered, "storage not registered")
	ErrNftAlreadyDeposited    = newError(CodeNftAlreadyDeposited, "nft already deposited")
	ErrInvalidAmount          = newError(CodeInvalidAmount, "invalid amount")
)
