package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bad request",
			err:  New(BadRequest, "missing cert"),
			want: "BadRequest: missing cert",
		},
		{
			name: "wrapped",
			err:  Wrap(MalformedPayload, errors.New("unexpected EOF"), "parse XMLData"),
			want: "MalformedPayload: parse XMLData: unexpected EOF",
		},
		{
			name: "formatted",
			err:  Newf(Internal, "adapter %q", "azul"),
			want: `Internal: adapter "azul"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	base := New(UpstreamFailure, "psp unreachable")
	wrapped := fmt.Errorf("forward: %w", base)

	assert.Equal(t, UpstreamFailure, KindOf(base))
	assert.Equal(t, UpstreamFailure, KindOf(wrapped))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, Unknown, KindOf(nil))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "no XMLData", Message(New(MalformedPayload, "no XMLData")))
	assert.Equal(t, "decode body: boom", Message(Wrap(Internal, errors.New("boom"), "decode body")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}
