package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"
	ErrProtoSchema     = "E_PROTO_SCHEMA"

	// Command layer.
	ErrBadCommand     = "E_BAD_COMMAND"
	ErrUnknownCommand = "E_UNKNOWN_COMMAND"
	ErrRateLimit      = "E_RATE_LIMIT"
	ErrStopped        = "E_STOPPED"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrProtoSchema:     {},
	ErrBadCommand:      {},
	ErrUnknownCommand:  {},
	ErrRateLimit:       {},
	ErrStopped:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
