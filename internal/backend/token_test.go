package backend

import (
	"bytes"
	"io"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesReader(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestParticipantID(t *testing.T) {
	tests := []struct {
		name    string
		claims  jwt.MapClaims
		want    int
		wantErr bool
	}{
		{"user_id claim", jwt.MapClaims{"sub": "alice", "user_id": 12}, 12, false},
		{"numeric sub", jwt.MapClaims{"sub": "34"}, 34, false},
		{"user_id wins", jwt.MapClaims{"sub": "34", "user_id": 7}, 7, false},
		{"username only", jwt.MapClaims{"sub": "alice"}, 0, true},
		{"fractional id", jwt.MapClaims{"user_id": 1.5}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParticipantID(signed(t, tt.claims))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoParticipantID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *id)
		})
	}
}

func TestParticipantID_Malformed(t *testing.T) {
	_, err := ParticipantID("not-a-token")
	assert.Error(t, err)
}
