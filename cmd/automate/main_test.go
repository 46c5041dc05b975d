package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	automatesdk "automate/sdk/go"
)

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"url=https://example.com", "count=3", "flags={\"a\":true}", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", args["url"])
	assert.Equal(t, float64(3), args["count"])
	assert.Equal(t, map[string]any{"a": true}, args["flags"])
	assert.Equal(t, "", args["empty"])

	args, err = parseArgs(nil)
	require.NoError(t, err)
	assert.Nil(t, args)

	_, err = parseArgs([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseArgs([]string{"=x"})
	assert.Error(t, err)
}

func TestFormatParams(t *testing.T) {
	assert.Equal(t, "-", formatParams(nil))
	assert.Equal(t, "url:string*, body:object", formatParams([]automatesdk.Param{
		{Name: "url", Type: "string", Required: true},
		{Name: "body", Type: "object"},
	}))
	assert.Equal(t, "-", joinOrDash(nil))
	assert.Equal(t, "a,b", joinOrDash([]string{"a", "b"}))
}
