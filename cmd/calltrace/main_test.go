package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/calltrace/pkg/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	var out bytes.Buffer
	cmd := newRootCmd(logger)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, "run", "-n", "1", "--background", "2", "-f", "json", "--min-us", "1000", "--max-depth", "3")
	require.NoError(t, err)

	var got struct {
		Records []report.Entry `json:"records"`
		Summary report.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got.Records)

	classes := make(map[string]bool)
	for _, r := range got.Records {
		classes[r.Class] = true
		assert.Less(t, r.Depth, int32(3))
		assert.Greater(t, r.DurationUS, uint64(1000))
	}
	assert.True(t, classes["AppDelegate"])
	assert.True(t, classes["FeedViewController"])
	assert.False(t, classes["SyncService"], "background calls must not be recorded")
	assert.False(t, classes["ImageDecoder"], "decodes run at depth 3")

	last := got.Records[len(got.Records)-1]
	assert.Equal(t, "didFinishLaunching", last.Method)
	assert.Equal(t, int32(0), last.Depth)
	assert.Equal(t, 1, got.Summary.Outermost)
}

func TestRunTable(t *testing.T) {
	out, err := execute(t, "run", "-n", "1", "--background", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Slow Main-Goroutine Calls")
	assert.Contains(t, out, "didFinishLaunching")
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "run", "-f", "yaml")
	assert.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestRunPprofNeedsOutput(t *testing.T) {
	_, err := execute(t, "run", "-f", "pprof")
	assert.Error(t, err)
}

func TestRunPprofToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.pb.gz")
	_, err := execute(t, "run", "-n", "1", "--background", "0", "-f", "pprof", "-o", path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestFlamegraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.svg")
	out, err := execute(t, "flamegraph", "-n", "1", "--background", "0", "-o", path, "--title", "Launch")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AppDelegate.didFinishLaunching")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "chatty", "run")
	assert.Error(t, err)
}

func TestOverhead(t *testing.T) {
	out, err := execute(t, "overhead", "--batches", "3", "--batch-size", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "Dispatch Overhead")
	assert.Contains(t, out, "traced (stopped)")
}

func TestRunDumpStack(t *testing.T) {
	out, err := execute(t, "run", "-n", "1", "--background", "0", "-f", "tsv", "--dump-stack")
	require.NoError(t, err)
	assert.Contains(t, out, "call stack (4 open)")
	assert.Contains(t, out, "AppDelegate.didFinishLaunching")
	assert.Contains(t, out, "ImageDecoder.decodeImage:")
	assert.Equal(t, 1, strings.Count(out, "call stack ("))
}
