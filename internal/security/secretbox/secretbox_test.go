package secretbox

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	return raw
}

func TestSealOpen(t *testing.T) {
	t.Parallel()
	box, err := New(base64.StdEncoding.EncodeToString(testKey()))
	require.NoError(t, err)

	msg := "EAAGm0PX4ZCpsBA token ✓"
	sealed, err := box.Seal(msg, "user:1:oauth:facebook")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "EAAG")
	assert.True(t, IsSealed(sealed))

	pt, err := box.Open(sealed, "user:1:oauth:facebook")
	require.NoError(t, err)
	assert.Equal(t, msg, pt)
}

func TestOpen_WrongAADFails(t *testing.T) {
	t.Parallel()
	box, err := New(hex.EncodeToString(testKey()))
	require.NoError(t, err)

	sealed, err := box.Seal("secret", "user:1:oauth:twitter")
	require.NoError(t, err)
	_, err = box.Open(sealed, "user:2:oauth:twitter")
	require.Error(t, err)
}

func TestOpen_DetectsTamper(t *testing.T) {
	t.Parallel()
	box, err := New(strings.Repeat("k", 32))
	require.NoError(t, err)

	sealed, err := box.Seal("top secret", "")
	require.NoError(t, err)
	nonce, ct, _ := strings.Cut(sealed, "|")
	bs, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)
	bs[0] ^= 0xFF
	_, err = box.Open(nonce+"|"+base64.StdEncoding.EncodeToString(bs), "")
	require.Error(t, err)
}

func TestOpen_Malformed(t *testing.T) {
	t.Parallel()
	box, err := New(base64.RawStdEncoding.EncodeToString(testKey()))
	require.NoError(t, err)
	_, err = box.Open("plain-token", "")
	require.ErrorIs(t, err, ErrMalformed)
	assert.False(t, IsSealed("plain-token"))
}

func TestParseKey_Invalid(t *testing.T) {
	t.Parallel()
	_, err := ParseKey("")
	require.Error(t, err)
	_, err = ParseKey("too-short")
	require.Error(t, err)
}
