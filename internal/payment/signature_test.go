package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignatureHeader(t *testing.T) {
	sig, err := ParseSignatureHeader("ts=1704908010,v1=618c85345248dd820d5fd456117c2ab2ef8eda45a0282ff693eac24131a5e839")
	require.NoError(t, err)
	assert.Equal(t, "1704908010", sig.Timestamp)
	assert.Equal(t, "618c85345248dd820d5fd456117c2ab2ef8eda45a0282ff693eac24131a5e839", sig.V1)

	sig, err = ParseSignatureHeader(" v1=abc , ts=1 ")
	require.NoError(t, err)
	assert.Equal(t, Signature{Timestamp: "1", V1: "abc"}, sig)

	_, err = ParseSignatureHeader("ts=1")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = ParseSignatureHeader("")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestManifest(t *testing.T) {
	assert.Equal(t, "id:123;request-id:req-9;ts:1700000000;", Manifest("123", "req-9", "1700000000"))
}

func TestVerifySignature(t *testing.T) {
	const secret = "whsec"
	good := "ts=1700000000,v1=" + Sign(secret, "123", "req-9", "1700000000")

	assert.NoError(t, VerifySignature(secret, good, "req-9", "123"))
	assert.ErrorIs(t, VerifySignature(secret, good, "req-9", "124"), ErrInvalidSignature, "different data id")
	assert.ErrorIs(t, VerifySignature(secret, good, "req-10", "123"), ErrInvalidSignature, "different request id")
	assert.ErrorIs(t, VerifySignature("other", good, "req-9", "123"), ErrInvalidSignature, "different secret")
	assert.ErrorIs(t, VerifySignature(secret, "", "req-9", "123"), ErrInvalidSignature, "missing header")

	assert.NoError(t, VerifySignature("", "", "", "123"), "verification disabled without a secret")
}
