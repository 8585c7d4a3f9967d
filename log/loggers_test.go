package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickforge/backtester/common/convert"
)

func TestSplitLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Levels{Info: true, Error: true}, splitLevel("INFO|error"))
	assert.Equal(t, Levels{}, splitLevel(""))
	assert.Equal(t, Levels{Info: true, Debug: true, Warn: true, Error: true}, splitLevel("DEBUG|INFO|WARN|ERROR"))
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()
	var a, b bytes.Buffer
	mw, err := MultiWriter(&a, &b)
	require.NoError(t, err)
	assert.ErrorIs(t, mw.Add(&a), errWriterAlreadyLoaded)

	n, err := mw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", a.String())
	assert.Equal(t, "hello", b.String())

	require.NoError(t, mw.Remove(&a))
	assert.ErrorIs(t, mw.Remove(&a), errWriterNotFound)
	_, err = mw.Write([]byte("!"))
	require.NoError(t, err)
	assert.Equal(t, "hello", a.String())
	assert.Equal(t, "hello!", b.String())
}

func TestGetWriters(t *testing.T) {
	t.Parallel()
	_, err := getWriters(nil)
	assert.ErrorIs(t, err, errSubloggerConfigIsNil)
	_, err = getWriters(&SubLoggerConfig{Output: "printer"})
	assert.ErrorIs(t, err, errUnhandledOutputWriter)
	w, err := getWriters(&SubLoggerConfig{Output: "stdout|stderr"})
	require.NoError(t, err)
	assert.NotNil(t, w)
}

// not parallel, mutates package state
func TestSetupGlobalLoggerToFile(t *testing.T) {
	assert.ErrorIs(t, SetupGlobalLogger(nil), errSubloggerConfigIsNil)

	path := filepath.Join(t.TempDir(), "run.log")
	c := GenDefaultSettings()
	c.FileName = path
	c.Output = "file"
	c.Level = "INFO|WARN|ERROR"
	c.SubLoggers = []SubLoggerConfig{{Name: "order", Level: "ERROR", Output: "file"}}
	require.NoError(t, SetupGlobalLogger(&c))
	t.Cleanup(func() {
		d := GenDefaultSettings()
		assert.NoError(t, SetupGlobalLogger(&d))
	})

	Infof(BackTester, "tick %d", 1)
	Info(OrderMgr, "suppressed")
	Errorf(OrderMgr, "rejected %s", "AAA")
	Debug(BackTester, "suppressed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "[INFO] | BACKTESTER")
	assert.Contains(t, out, "tick 1")
	assert.Contains(t, out, "[ERROR] | ORDER")
	assert.NotContains(t, out, "suppressed")
	assert.Equal(t, 2, strings.Count(out, "\n"))

	c.SubLoggers = []SubLoggerConfig{{Name: "nope", Level: "INFO", Output: "file"}}
	assert.ErrorIs(t, SetupGlobalLogger(&c), errSubLoggerNotFound)

	c.SubLoggers = nil
	c.FileName = ""
	assert.ErrorIs(t, SetupGlobalLogger(&c), errFileNameUnset)

	c.Enabled = convert.BoolPtr(false)
	require.NoError(t, SetupGlobalLogger(&c))
	Error(Global, "nothing")
}
