package sysinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleString(t *testing.T) {
	s := Sample{
		Memory: Memory{Total: 16384000, Free: 8192000, Available: 12288000},
		CPU:    CPU{Used: 1.5, Idle: 8.5, Total: 10, Usage: 15, Cores: 2},
	}
	assert.Equal(t,
		"Memory - Total: 16000 MB, Free: 8000 MB, Available: 12000 MB; CPU - Usage: 15.00% on 2 cores",
		s.String())
}

func TestMemoryFromFixture(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "meminfo"),
		"MemTotal:       16384000 kB\nMemFree:         8192000 kB\nMemAvailable:   12288000 kB\n")
	fs, err := procfs.NewFS(dir)
	require.NoError(t, err)
	c := &Collector{fs: fs}
	mem, err := c.memory()
	require.NoError(t, err)
	assert.Equal(t, Memory{Total: 16384000, Free: 8192000, Available: 12288000}, mem)
}

func TestCPUFromFixture(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "stat"),
		"cpu  100 20 30 800 50 0 0 0 0 0\n"+
			"cpu0 50 10 15 400 25 0 0 0 0 0\n"+
			"cpu1 50 10 15 400 25 0 0 0 0 0\n"+
			"intr 0\nctxt 0\nbtime 1700000000\nprocesses 1\nprocs_running 1\nprocs_blocked 0\n")
	fs, err := procfs.NewFS(dir)
	require.NoError(t, err)
	c := &Collector{fs: fs}
	cpu, err := c.cpu()
	require.NoError(t, err)
	assert.Equal(t, 2, cpu.Cores)
	assert.InDelta(t, 10.0, cpu.Total, 0.001)
	assert.InDelta(t, 8.5, cpu.Idle, 0.001)
	assert.InDelta(t, 1.5, cpu.Used, 0.001)
	assert.InDelta(t, 15.0, cpu.Usage, 0.001)
}

func TestMemoryLimitV1(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "memory"), 0o755))
	writeFile(t, filepath.Join(root, "memory", "memory.limit_in_bytes"), "1073741824\n")
	assert.Equal(t, uint64(1073741824), memoryLimit(root))
}

func TestMemoryLimitV2(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "memory.max"), "536870912\n")
	assert.Equal(t, uint64(536870912), memoryLimit(root))
}

func TestMemoryLimitV2Unlimited(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "memory.max"), "max\n")
	assert.Equal(t, Unlimited, memoryLimit(root))
}

func TestMemoryLimitUnknown(t *testing.T) {
	assert.Equal(t, uint64(0), memoryLimit(t.TempDir()))
}

func TestReadLimitFileGarbage(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "memory.max")
	writeFile(t, p, "not-a-number\n")
	_, ok := readLimitFile(p)
	assert.False(t, ok)
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
