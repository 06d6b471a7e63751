package util

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSaveJsonCreatesDirectories(t *testing.T) {
	p := filepath.Join(t.TempDir(), "0", "nested", "out.json")
	require.NoError(t, SaveJson(p, map[string]int{"parked": 3}))

	bs, err := os.ReadFile(p)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(bs, &got))
	assert.Equal(t, map[string]int{"parked": 3}, got)
}

func TestReadJson(t *testing.T) {
	p := filepath.Join(t.TempDir(), "curve.json")
	require.NoError(t, SaveJson(p, []float64{-1.5, 0.25}))

	var got []float64
	require.NoError(t, ReadJson(p, &got))
	assert.Equal(t, []float64{-1.5, 0.25}, got)

	require.NoError(t, os.WriteFile(p, []byte("{"), 0644))
	assert.Error(t, ReadJson(p, &got))
	assert.Error(t, ReadJson(filepath.Join(t.TempDir(), "missing.json"), &got))
}

func TestCopyStringIntMap(t *testing.T) {
	m := map[string]int{"a": 1}
	c := CopyStringIntMap(m)
	c["a"] = 2
	assert.Equal(t, 1, m["a"])
}

func TestParallelOutput(t *testing.T) {
	out := NewParallelOutput()
	out.Set("one")
	assert.Equal(t, "one", out.Get())
	assert.True(t, out.TrySet("two"))
	out.Display("Episode: 1 | Steps: 0 | Reward: 0.00")
	assert.Equal(t, "Episode: 1 | Steps: 0 | Reward: 0.00", out.Get())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTerminalPrinterPrintsFinalLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	buf := &syncBuffer{}
	printer := NewTerminalPrinter(time.Millisecond, buf)
	first := printer.NewOutput()
	second := printer.NewOutput()
	printer.Start(context.Background())

	first.Set("seek: Episode: 3")
	second.Set("random: Episode: 2")
	printer.Stop()
	printer.Stop()

	out := buf.String()
	assert.True(t, strings.Contains(out, "seek: Episode: 3"), out)
	assert.True(t, strings.Contains(out, "random: Episode: 2"), out)
}
