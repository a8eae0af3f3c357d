package messenger

import (
	"testing"

	domerrors "github.com/globexvn/messenger-tracking-bot/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	t.Parallel()
	body := []byte(`{"object":"page","entry":[]}`)
	valid := Sign("app-secret", body)

	tests := []struct {
		name   string
		header string
		body   []byte
		ok     bool
	}{
		{name: "valid", header: valid, body: body, ok: true},
		{name: "missing", header: "", body: body},
		{name: "wrong prefix", header: "sha1=" + valid[len("sha256="):], body: body},
		{name: "not hex", header: "sha256=zz", body: body},
		{name: "tampered body", header: valid, body: []byte(`{"object":"page"}`)},
		{name: "other secret", header: Sign("other", body), body: body},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := VerifySignature("app-secret", tt.body, tt.header)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domerrors.ErrInvalidSignature)
			}
		})
	}
}
