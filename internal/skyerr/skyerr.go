// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package skyerr defines the single tagged error type used across Skylapse.
// Every failure site wraps its cause in an *Error carrying a Kind (what
// category of failure this is, which drives the recovery policy at the
// call site) and an Op (which operation raised it), plus free-form context
// fields for logging.
package skyerr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure by the recovery policy it implies.
type Kind int

const (
	// KindUnknown is the zero value; never constructed deliberately.
	KindUnknown Kind = iota
	// KindConfigInvalid marks a startup-time configuration problem. Fatal.
	KindConfigInvalid
	// KindAdapterUnavailable marks a camera adapter timeout or HTTP error
	// during a capture burst. Log and skip this (profile, tick).
	KindAdapterUnavailable
	// KindDownloadFailed marks an image download failure or zero-length
	// body. Log and skip the ledger insert for this capture.
	KindDownloadFailed
	// KindLedgerTx marks a ledger transaction failure on any write. The
	// transaction is rolled back and the error propagated; the scheduler
	// continues on the next tick regardless.
	KindLedgerTx
	// KindEnqueueFailed marks a job-queue enqueue failure at window end.
	// The caller must not mark the window's end as fired so the next tick
	// retries the enqueue.
	KindEnqueueFailed
	// KindFusionFailed marks an HDR bracket-fusion error for one group.
	// The worker logs it and continues with the remaining groups.
	KindFusionFailed
	// KindEncodeFailed marks a non-zero encoder exit or encode timeout.
	// The job is failed; the queue's redelivery policy governs retry.
	KindEncodeFailed
	// KindFrameMissing marks a missing source frame at encode time. The
	// job fails; an operator must intervene.
	KindFrameMissing
)

func (k Kind) String() string {
	switch k {
	case KindConfigInvalid:
		return "config_invalid"
	case KindAdapterUnavailable:
		return "adapter_unavailable"
	case KindDownloadFailed:
		return "download_failed"
	case KindLedgerTx:
		return "ledger_tx"
	case KindEnqueueFailed:
		return "enqueue_failed"
	case KindFusionFailed:
		return "fusion_failed"
	case KindEncodeFailed:
		return "encode_failed"
	case KindFrameMissing:
		return "frame_missing"
	default:
		return "unknown"
	}
}

// Error is the single error type raised by Skylapse's internal packages.
// Context carries structured fields (schedule, profile, session_id, ...)
// that callers attach for logging without needing to parse the message.
type Error struct {
	Kind    Kind
	Op      string
	Context map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error. kv must be an even-length list of alternating
// string keys and values, e.g. New(KindLedgerTx, "ledger.RecordCapture", err,
// "session_id", sessionID).
func New(kind Kind, op string, cause error, kv ...any) *Error {
	var ctx map[string]any
	if len(kv) > 0 {
		ctx = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				continue
			}
			ctx[key] = kv[i+1]
		}
	}
	return &Error{Kind: kind, Op: op, Context: ctx, Err: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, else returns KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err's Kind equals kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
