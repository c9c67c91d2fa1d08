package sysinfo

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/procfs"
)

const (
	defaultCgroupRoot = "/sys/fs/cgroup"
	kb                = 1024
)

// Unlimited marks a resource limit with no bound.
const Unlimited uint64 = math.MaxUint64

// Memory holds sizes in kilobytes, as reported by /proc/meminfo.
type Memory struct {
	Total     uint64 `json:"total"`
	Free      uint64 `json:"free"`
	Available uint64 `json:"available"`
}

// CPU holds cumulative CPU times in seconds since boot from /proc/stat and
// the usage percentage derived from them.
type CPU struct {
	Used  float64 `json:"used"`
	Idle  float64 `json:"idle"`
	Total float64 `json:"total"`
	Usage float64 `json:"usage"`
	Cores int     `json:"cores"`
}

// Limits holds the process resource limits from /proc/self/limits.
type Limits struct {
	CPUTime      uint64 `json:"cpu_time"`
	AddressSpace uint64 `json:"address_space"`
	Processes    uint64 `json:"processes"`
}

// Cgroup holds the cgroup path of the process and the memory limit in bytes.
// A zero limit means it could not be determined.
type Cgroup struct {
	Path        string `json:"path"`
	MemoryLimit uint64 `json:"memory_limit"`
}

// Sample is a point-in-time report of system resource information.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Memory    Memory    `json:"memory"`
	CPU       CPU       `json:"cpu"`
	Limits    Limits    `json:"limits"`
	Cgroup    Cgroup    `json:"cgroup"`
}

func (s Sample) String() string {
	return fmt.Sprintf("Memory - Total: %d MB, Free: %d MB, Available: %d MB; CPU - Usage: %.2f%% on %d cores",
		s.Memory.Total/kb, s.Memory.Free/kb, s.Memory.Available/kb, s.CPU.Usage, s.CPU.Cores)
}

// Collector reads resource information from procfs and the cgroup filesystem.
type Collector struct {
	fs         procfs.FS
	proc       procfs.Proc
	cgroupRoot string
}

func NewCollector() (*Collector, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to create system info collector: %w", err)
	}
	proc, err := fs.Self()
	if err != nil {
		return nil, fmt.Errorf("failed to create system info collector: %w", err)
	}
	return &Collector{fs: fs, proc: proc, cgroupRoot: defaultCgroupRoot}, nil
}

func (c *Collector) Collect() (Sample, error) {
	mem, err := c.memory()
	if err != nil {
		return Sample{}, err
	}
	cpu, err := c.cpu()
	if err != nil {
		return Sample{}, err
	}
	limits, err := c.limits()
	if err != nil {
		return Sample{}, err
	}
	cg, err := c.cgroup()
	if err != nil {
		return Sample{}, err
	}
	return Sample{Timestamp: time.Now(), Memory: mem, CPU: cpu, Limits: limits, Cgroup: cg}, nil
}

func (c *Collector) memory() (Memory, error) {
	mi, err := c.fs.Meminfo()
	if err != nil {
		return Memory{}, fmt.Errorf("failed to read memory info: %w", err)
	}
	return Memory{
		Total:     deref(mi.MemTotal),
		Free:      deref(mi.MemFree),
		Available: deref(mi.MemAvailable),
	}, nil
}

func (c *Collector) cpu() (CPU, error) {
	st, err := c.fs.Stat()
	if err != nil {
		return CPU{}, fmt.Errorf("failed to read CPU info: %w", err)
	}
	t := st.CPUTotal
	total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.IRQ + t.SoftIRQ + t.Steal
	idle := t.Idle + t.Iowait
	used := total - idle
	usage := 0.0
	if total > 0 {
		usage = used / total * 100
	}
	return CPU{Used: used, Idle: idle, Total: total, Usage: usage, Cores: len(st.CPU)}, nil
}

func (c *Collector) limits() (Limits, error) {
	l, err := c.proc.Limits()
	if err != nil {
		return Limits{}, fmt.Errorf("failed to read process limits: %w", err)
	}
	return Limits{CPUTime: l.CPUTime, AddressSpace: l.AddressSpace, Processes: l.Processes}, nil
}

func (c *Collector) cgroup() (Cgroup, error) {
	cgs, err := c.proc.Cgroups()
	if err != nil {
		return Cgroup{}, fmt.Errorf("failed to read cgroup info: %w", err)
	}
	cg := Cgroup{MemoryLimit: memoryLimit(c.cgroupRoot)}
	if len(cgs) > 0 {
		cg.Path = cgs[0].Path
	}
	return cg, nil
}

// memoryLimit reads the cgroup memory limit in bytes, trying the v1 location
// first and falling back to the unified hierarchy. Zero means the limit is
// unknown, Unlimited means there is no bound.
func memoryLimit(root string) uint64 {
	if v, ok := readLimitFile(filepath.Join(root, "memory", "memory.limit_in_bytes")); ok {
		return v
	}
	if v, ok := readLimitFile(filepath.Join(root, "memory.max")); ok {
		return v
	}
	return 0
}

func readLimitFile(path string) (uint64, bool) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, false
	}
	str := strings.TrimSpace(string(data))
	if str == "max" {
		return Unlimited, true
	}
	v, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func deref(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
