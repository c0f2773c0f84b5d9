package domain

import (
	"fmt"
	"strings"
)

// ErrorKind separates user-correctable validation categories from
// execution-time platform failures.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindPlatform   ErrorKind = "platform"
)

// ErrorCode is one entry of the closed error taxonomy. Values are shared and
// must not be mutated; compare by Code.
type ErrorCode struct {
	Code    int       `json:"code"`
	Name    string    `json:"name"`
	Kind    ErrorKind `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

func (e *ErrorCode) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Code, e.Name, e.Message)
}

// Is matches any ErrorCode carrying the same Code
func (e *ErrorCode) Is(target error) bool {
	t, ok := target.(*ErrorCode)
	return ok && t.Code == e.Code
}

// IsPlatformFailure reports whether the code was raised during execution
// rather than validation.
func (e *ErrorCode) IsPlatformFailure() bool {
	return e.Kind == ErrorKindPlatform
}

// Format renders the message template, substituting the application name
// for every "{app}" placeholder.
func (e *ErrorCode) Format(appName string) string {
	return strings.ReplaceAll(e.Message, "{app}", appName)
}

// Validation categories
var (
	ErrUnsupportedCollector = &ErrorCode{
		Code: 100, Name: "UnsupportedCollector", Kind: ErrorKindValidation,
		Message: "unsupported collector, use one of rooted_android, vpn_android, ios",
	}
	ErrOutputRequired = &ErrorCode{
		Code: 101, Name: "OutputRequired", Kind: ErrorKindValidation,
		Message: "an output location is required",
	}
	ErrUnsupportedFormat = &ErrorCode{
		Code: 102, Name: "UnsupportedFormat", Kind: ErrorKindValidation,
		Message: "unsupported report format, use json or html",
	}
	ErrFileExists = &ErrorCode{
		Code: 103, Name: "FileExists", Kind: ErrorKindValidation,
		Message: "output file already exists, use --overwrite yes to replace it",
	}
	ErrInvalidVideoOption = &ErrorCode{
		Code: 104, Name: "InvalidVideoOption", Kind: ErrorKindValidation,
		Message: "invalid video option, use one of yes, no, hd, sd, slow",
	}
	ErrSecureNotApplicable = &ErrorCode{
		Code: 105, Name: "SecureNotApplicable", Kind: ErrorKindValidation,
		Message: "secure collection is only available for the vpn_android collector",
	}
	ErrSecureEnableRequired = &ErrorCode{
		Code: 106, Name: "SecureEnableRequired", Kind: ErrorKindValidation,
		Message: "certificate installation requires secure collection to be enabled",
	}
	ErrAttenuatorNotApplicable = &ErrorCode{
		Code: 107, Name: "AttenuatorNotApplicable", Kind: ErrorKindValidation,
		Message: "uplink and downlink attenuation are only available for the vpn_android collector",
	}
	ErrInvalidUplink = &ErrorCode{
		Code: 108, Name: "InvalidUplink", Kind: ErrorKindValidation,
		Message: "uplink must be between 0 and 100",
	}
	ErrInvalidDownlink = &ErrorCode{
		Code: 109, Name: "InvalidDownlink", Kind: ErrorKindValidation,
		Message: "downlink must be between 0 and 2000",
	}
)

// Platform failure categories
var (
	ErrStorageFailure = &ErrorCode{
		Code: 200, Name: "StorageFailure", Kind: ErrorKindPlatform, Title: "Problem encountered",
		Message: "{app} could not access the output location",
	}
	ErrMemoryExhausted = &ErrorCode{
		Code: 201, Name: "MemoryExhausted", Kind: ErrorKindPlatform, Title: "Problem encountered",
		Message: "{app} ran out of memory while processing the trace",
	}
	ErrPacketCaptureDriver = &ErrorCode{
		Code: 202, Name: "PacketCaptureDriver", Kind: ErrorKindPlatform, Title: "Problem encountered",
		Message: "{app} could not load the packet capture driver, check the pcap installation",
	}
	ErrVideoTranscoding = &ErrorCode{
		Code: 203, Name: "VideoTranscoding", Kind: ErrorKindPlatform, Title: "Problem encountered",
		Message: "{app} could not transcode the trace video, check the ffmpeg installation",
	}
	ErrVideoPlayback = &ErrorCode{
		Code: 204, Name: "VideoPlayback", Kind: ErrorKindPlatform, Title: "Problem encountered",
		Message: "the video player component failed to open the trace video",
	}
	ErrAnalysisFailed = &ErrorCode{
		Code: 205, Name: "AnalysisFailed", Kind: ErrorKindPlatform, Title: "Problem encountered",
		Message: "{app} failed to analyze the trace",
	}
	ErrInterrupted = &ErrorCode{
		Code: 206, Name: "Interrupted", Kind: ErrorKindPlatform, Title: "Interrupted",
		Message: "the task was interrupted before it finished",
	}
)

var registry = []*ErrorCode{
	ErrUnsupportedCollector,
	ErrOutputRequired,
	ErrUnsupportedFormat,
	ErrFileExists,
	ErrInvalidVideoOption,
	ErrSecureNotApplicable,
	ErrSecureEnableRequired,
	ErrAttenuatorNotApplicable,
	ErrInvalidUplink,
	ErrInvalidDownlink,
	ErrStorageFailure,
	ErrMemoryExhausted,
	ErrPacketCaptureDriver,
	ErrVideoTranscoding,
	ErrVideoPlayback,
	ErrAnalysisFailed,
	ErrInterrupted,
}

// ErrorCodes returns every category of the taxonomy ordered by code
func ErrorCodes() []*ErrorCode {
	out := make([]*ErrorCode, len(registry))
	copy(out, registry)
	return out
}

// ErrorCodeByCode looks up a category by its stable code
func ErrorCodeByCode(code int) (*ErrorCode, bool) {
	for _, e := range registry {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}
