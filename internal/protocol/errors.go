package protocol

const (
	// Malformed request: bad JSON, unknown message type, wrong method.
	ErrBadRequest = "E_BAD_REQUEST"

	// Input violates the tileset or grid schema.
	ErrSchema = "E_SCHEMA"

	// Some cell has no matching tile.
	ErrUnsatisfiable = "E_UNSATISFIABLE"

	ErrNotFound = "E_NOT_FOUND"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:    {},
	ErrSchema:        {},
	ErrUnsatisfiable: {},
	ErrNotFound:      {},
	ErrInternal:      {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
