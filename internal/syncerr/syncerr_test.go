// ABOUTME: Tests for the engine error taxonomy
// ABOUTME: Validates sentinel matching, wrapping, and session-ending classification

package syncerr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	err := AuthenticationRejected("token expired")

	assert.ErrorIs(t, err, ErrAuthenticationRejected)
	assert.NotErrorIs(t, err, ErrTransientConnectivity)
	assert.Equal(t, "token expired", ReasonOf(err))
	assert.Equal(t, KindAuthenticationRejected, KindOf(err))
}

func TestError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("loading history: %w", Transient("dial failed", io.ErrUnexpectedEOF))

	assert.ErrorIs(t, err, ErrTransientConnectivity)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, KindTransientConnectivity, KindOf(err))
	assert.Contains(t, err.Error(), "dial failed")
}

func TestEndsSession(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"credential missing", CredentialMissing(), true},
		{"auth rejected", AuthenticationRejected("Unauthorized"), true},
		{"wrapped auth", fmt.Errorf("fetch: %w", AuthenticationRejected("")), true},
		{"transient", Transient("closed", nil), false},
		{"malformed", New(KindMalformedPayload, "not json", nil), false},
		{"send rejected", SendRejected("disconnected"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EndsSession(tt.err))
		})
	}
}

func TestCredentialMissing_Reason(t *testing.T) {
	assert.Equal(t, "missing credential", ReasonOf(CredentialMissing()))
	assert.Equal(t, "credential missing: missing credential", CredentialMissing().Error())
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "plain", ReasonOf(errors.New("plain")))
	assert.Equal(t, "", ReasonOf(nil))
}
