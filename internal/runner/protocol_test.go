package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark/surfreplay/internal/steps"
)

func TestParseProtocolLine(t *testing.T) {
	t.Run("single success line", func(t *testing.T) {
		res, err := parseProtocolLine([]byte(`{"success":true,"serialized_tx":"AQID"}` + "\n"))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "AQID", res.SerializedTx)
	})

	t.Run("ignores noise around the line", func(t *testing.T) {
		stdout := strings.Join([]string{
			"warming up...",
			"{not json at all",
			`{"unrelated":"object"}`,
			`  {"success":false,"error":"route rejected","type":"validation"}  `,
			"done",
		}, "\n")

		res, err := parseProtocolLine([]byte(stdout))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "route rejected", res.Error)
		assert.Equal(t, "validation", res.Type)
	})

	t.Run("last line wins", func(t *testing.T) {
		stdout := `{"success":false,"error":"first attempt"}` + "\n" +
			`{"success":true,"serialized_tx":"ZmluYWw="}` + "\n"

		res, err := parseProtocolLine([]byte(stdout))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "ZmluYWw=", res.SerializedTx)
	})

	t.Run("json without success key is not a result", func(t *testing.T) {
		_, err := parseProtocolLine([]byte(`{"serialized_tx":"AQID"}` + "\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no protocol line")
	})

	t.Run("empty output", func(t *testing.T) {
		_, err := parseProtocolLine(nil)
		require.Error(t, err)
	})
}

func TestFailureResult(t *testing.T) {
	t.Run("structured build error keeps class and sub-errors", func(t *testing.T) {
		berr := &steps.BuildError{
			Kind:    "validation",
			Msg:     "recorded route does not match the discovered pool",
			Details: "source mint is pinned to the wrong side",
			Subs: []steps.BuildIssue{
				{Message: "expected base mint", Location: "amm.base_mint"},
				{Message: "found under quote mint", Location: "amm.quote_mint"},
			},
		}

		res := FailureResult(berr)
		assert.False(t, res.Success)
		assert.Equal(t, "validation", res.Type)
		assert.Equal(t, berr.Msg, res.Error)
		assert.Equal(t, berr.Details, res.Details)
		require.Len(t, res.Errors, 2)
		assert.Equal(t, "amm.base_mint", res.Errors[0].Location)
		assert.Equal(t, "found under quote mint", res.Errors[1].Message)
	})

	t.Run("build error without kind keeps the default type", func(t *testing.T) {
		res := FailureResult(&steps.BuildError{Msg: "no payer"})
		assert.Equal(t, "build_error", res.Type)
		assert.Equal(t, "no payer", res.Error)
	})

	t.Run("wrapped build error is still recognized", func(t *testing.T) {
		berr := &steps.BuildError{Kind: "context", Msg: "build context has no payer"}
		res := FailureResult(errors.Join(errors.New("step wrap_sol"), berr))
		assert.Equal(t, "context", res.Type)
		assert.Equal(t, "build context has no payer", res.Error)
	})

	t.Run("plain error degrades to a message", func(t *testing.T) {
		res := FailureResult(errors.New("disk on fire"))
		assert.False(t, res.Success)
		assert.Equal(t, "build_error", res.Type)
		assert.Equal(t, "disk on fire", res.Error)
		assert.Empty(t, res.Errors)
	})
}

func TestWriteLineRoundTrip(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, SuccessResult("dHgtYnl0ZXM=").WriteLine(&out))

	line := out.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Equal(t, 1, strings.Count(line, "\n"))

	var decoded BuildResult
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.True(t, decoded.Success)
	assert.Equal(t, "dHgtYnl0ZXM=", decoded.SerializedTx)

	// Success lines stay minimal: failure-only fields are omitted entirely.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(line), &raw))
	assert.NotContains(t, raw, "error")
	assert.NotContains(t, raw, "errors")
	assert.NotContains(t, raw, "type")
}
