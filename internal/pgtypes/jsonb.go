package pgtypes

import "github.com/pingcap/errors"

// jsonbVersion is the only version PostgreSQL has ever emitted on the
// wire; a future version bump would need a new branch here, the same way
// pgx's own jsonb codec guards it.
const jsonbVersion = 1

// DecodeJSONB strips jsonb's one-byte version prefix and returns the
// remaining UTF-8 text untouched, so it can be appended straight into a
// BYTE_ARRAY (STRING/JSON-annotated) leaf without re-parsing the
// document. PostgreSQL's plain `json` type has no such prefix and is
// passed through unchanged by RegisterJSON's codec instead of going
// through this decoder.
func DecodeJSONB(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("jsonb: empty payload")
	}
	if src[0] != jsonbVersion {
		return nil, errors.Errorf("jsonb: unsupported version byte %d", src[0])
	}
	return src[1:], nil
}
