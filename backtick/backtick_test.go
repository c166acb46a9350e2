package backtick

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydlog/cfglex/argscope"
	"github.com/relaydlog/cfglex/cfgerrors"
)

func TestSubstituteResolutionOrderArgsBeforeDefsBeforeGlobals(t *testing.T) {
	globals := argscope.New()
	globals.Set("who", "globals")
	defs := argscope.New()
	defs.Set("who", "defs")
	args := argscope.New()
	args.Set("who", "args")

	out, err := Substitute(Scopes{Globals: globals, Defs: defs, Args: args}, "hello `who`")
	require.NoError(t, err)
	assert.Equal(t, "hello args", out)

	out, err = Substitute(Scopes{Globals: globals, Defs: defs}, "hello `who`")
	require.NoError(t, err)
	assert.Equal(t, "hello defs", out)

	out, err = Substitute(Scopes{Globals: globals}, "hello `who`")
	require.NoError(t, err)
	assert.Equal(t, "hello globals", out)
}

func TestSubstituteFallsBackToEnvironment(t *testing.T) {
	t.Setenv("CFGLEX_TEST_VAR", "from-env")
	out, err := Substitute(Scopes{}, "value=`CFGLEX_TEST_VAR`")
	require.NoError(t, err)
	assert.Equal(t, "value=from-env", out)
}

func TestSubstituteUnresolvedNameExpandsToEmptyNoError(t *testing.T) {
	os.Unsetenv("CFGLEX_DEFINITELY_UNSET")
	out, err := Substitute(Scopes{}, "x=`CFGLEX_DEFINITELY_UNSET`y")
	require.NoError(t, err)
	assert.Equal(t, "x=y", out)
}

func TestSubstituteEmptyReferenceIsLiteralBacktick(t *testing.T) {
	out, err := Substitute(Scopes{}, "a``b")
	require.NoError(t, err)
	assert.Equal(t, "a`b", out)
}

func TestSubstituteUnterminatedBacktick(t *testing.T) {
	_, err := Substitute(Scopes{}, "oops `unterminated")
	require.Error(t, err)
	assert.True(t, cfgerrors.Is(err, cfgerrors.KindUnterminatedBacktick))
}

func TestSubstituteNoBackticksIsNoOp(t *testing.T) {
	out, err := Substitute(Scopes{}, "plain text; no refs here")
	require.NoError(t, err)
	assert.Equal(t, "plain text; no refs here", out)
}
