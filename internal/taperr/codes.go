package taperr

type Code string

const (
	CodeHardwareUnsupported Code = "hardware_unsupported"
	CodeHardwareDisabled    Code = "hardware_disabled"
	CodeInvalidSignature    Code = "invalid_signature"
	CodeStalePayload        Code = "stale_payload"
	CodeUserDeclined        Code = "user_declined"
	CodeBackendFailure      Code = "backend_failure"
	CodeTimeout             Code = "timeout"
	CodeStorageUnavailable  Code = "storage_unavailable"
	CodeInvalidPayload      Code = "invalid_payload"
	CodeInternal            Code = "internal"
)
