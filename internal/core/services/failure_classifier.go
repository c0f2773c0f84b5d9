package services

import (
	"context"
	"errors"
	"strings"

	"github.com/tracecmd/backend/internal/domain"
)

type failureSignature struct {
	substr string
	code   *domain.ErrorCode
}

// failureSignatures is evaluated top-down; the first signature contained in
// the failure message wins.
var failureSignatures = []failureSignature{
	{substr: "GC overhead limit exceeded", code: domain.ErrMemoryExhausted},
	{substr: "jpcap64.dll", code: domain.ErrPacketCaptureDriver},
	{substr: "PCapAdapter.loopPacket", code: domain.ErrPacketCaptureDriver},
	{substr: "ffmpeg", code: domain.ErrVideoTranscoding},
	{substr: "mp4Player", code: domain.ErrVideoPlayback},
}

// ClassifyFailure maps a work failure to a platform category. Cancellation
// maps to Interrupted, a failure that already carries a platform category
// keeps it, anything else is matched against the signature table and falls
// back to AnalysisFailed. A nil error yields nil.
func ClassifyFailure(err error) *domain.ErrorCode {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrInterrupted
	}

	var code *domain.ErrorCode
	if errors.As(err, &code) && code.IsPlatformFailure() {
		return code
	}

	msg := err.Error()
	for _, sig := range failureSignatures {
		if strings.Contains(msg, sig.substr) {
			return sig.code
		}
	}
	return domain.ErrAnalysisFailed
}
