package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esbmc-ai/esbmc-ai-go/internal/config"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifier"
)

func TestNewBuildsLookupableRegistry(t *testing.T) {
	r, err := New(
		[]VerifierComponent{{Name: "esbmc", Adapter: verifier.New(nil), Timeout: 60, EntryFunction: "main"}},
		[]CommandComponent{{Name: "fix-code", Config: config.Default(), Verifier: "esbmc"}},
	)
	require.NoError(t, err)

	v, ok := r.Verifier("esbmc")
	require.True(t, ok)
	assert.Equal(t, 60, v.Timeout)

	c, ok := r.Command("fix-code")
	require.True(t, ok)
	assert.Equal(t, "esbmc", c.Verifier)

	_, ok = r.Verifier("missing")
	assert.False(t, ok)
}

func TestNewRejectsDuplicateVerifierNames(t *testing.T) {
	_, err := New(
		[]VerifierComponent{{Name: "esbmc"}, {Name: "esbmc"}},
		nil,
	)
	require.Error(t, err)
}

func TestNewRejectsCommandReferencingUnknownVerifier(t *testing.T) {
	_, err := New(
		nil,
		[]CommandComponent{{Name: "fix-code", Verifier: "does-not-exist"}},
	)
	require.Error(t, err)
}

func TestVerifierAndCommandNames(t *testing.T) {
	r, err := New(
		[]VerifierComponent{{Name: "esbmc"}, {Name: "esbmc-strict"}},
		[]CommandComponent{{Name: "fix-code"}},
	)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"esbmc", "esbmc-strict"}, r.VerifierNames())
	assert.ElementsMatch(t, []string{"fix-code"}, r.CommandNames())
}
