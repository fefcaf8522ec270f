// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp(&out)
	app.ErrWriter = io.Discard
	err := app.Run(context.Background(), append([]string{"lazycache"}, args...))
	return out.String(), err
}

func TestGetCommand_CachesAfterFirstRead(t *testing.T) {
	out, err := runApp(t, "get", "--id", "7", "--repeat", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Cached Data for ID 7: Data for Id 7"))
	assert.Contains(t, out, "producer calls: 1\n")
}

func TestGetCommand_Memoize(t *testing.T) {
	out, err := runApp(t, "get", "--memoize")
	require.NoError(t, err)
	assert.Contains(t, out, "Cached Data for ID 123: Data for Id 123")
	assert.Contains(t, out, "producer calls: 1\n")
}

func TestStampedeCommand_SingleProducerCall(t *testing.T) {
	out, err := runApp(t, "stampede", "--callers", "50", "--latency", "30ms")
	require.NoError(t, err)
	assert.Contains(t, out, "callers: 50, producer calls: 1")
	assert.Contains(t, out, "coalesced=")
}

func TestRetryCommand_RecoversWithinBudget(t *testing.T) {
	out, err := runApp(t, "retry", "--failures", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Exception caught, retrying (1/3)")
	assert.Contains(t, out, "Exception caught, retrying (2/3)")
	assert.NotContains(t, out, "(3/3)")
	assert.Contains(t, out, "Cached Data with Retry for ID 123: Data for Id 123")
	assert.Contains(t, out, "producer calls: 3, cached: true")
}

func TestRetryCommand_Exhausted(t *testing.T) {
	out, err := runApp(t, "retry", "--failures", "5", "--attempts", "3", "--backoff", "fixed", "--delay", "1ms")
	require.NoError(t, err)
	assert.Contains(t, out, "gave up after 3 attempts")
	assert.Contains(t, out, "producer calls: 3, cached: false")
}

func TestRetryCommand_InvalidBackoff(t *testing.T) {
	_, err := runApp(t, "retry", "--backoff", "linear")
	assert.Error(t, err)
}

func TestExpireCommand_Absolute(t *testing.T) {
	out, err := runApp(t, "expire", "--ttl", "250ms", "--probe", "200ms", "--count", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], "(producer calls: 1)")
	assert.Contains(t, lines[1], "(producer calls: 1)")
	assert.Contains(t, lines[2], "(producer calls: 2)")
}

func TestExpireCommand_Sliding(t *testing.T) {
	out, err := runApp(t, "expire", "--mode", "sliding", "--ttl", "250ms", "--probe", "200ms", "--count", "3")
	require.NoError(t, err)
	assert.NotContains(t, out, "(producer calls: 2)")
}

func TestApp_InvalidMetricsBackend(t *testing.T) {
	_, err := runApp(t, "--metrics-backend", "statsd", "get")
	assert.Error(t, err)
}

func TestApp_MetricsBackends(t *testing.T) {
	for _, backend := range []string{"otel", "prometheus"} {
		t.Run(backend, func(t *testing.T) {
			out, err := runApp(t, "--metrics-addr", "127.0.0.1:0", "--metrics-backend", backend, "get")
			require.NoError(t, err)
			assert.Contains(t, out, "producer calls: 1")
		})
	}
}

func TestApp_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazycache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cache": {"retry": {"max_attempts": 5}}}`), 0600))

	out, err := runApp(t, "--config", path, "get")
	require.NoError(t, err)
	assert.Contains(t, out, "producer calls: 1")
}
