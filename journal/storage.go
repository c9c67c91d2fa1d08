package journal

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/peerd-dev/peerd/sysinfo"
)

const (
	storagePath = "journal"
	keySize     = 8
)

type key struct {
	ts time.Time
}

func (k *key) bytes() []byte {
	buf := make([]byte, keySize)
	binary.BigEndian.PutUint64(buf, uint64(k.ts.UnixNano()))
	return buf
}

func (k *key) fromBytes(data []byte) {
	if l := len(data); l != keySize {
		panic(fmt.Sprintf("invalid key size %d of samples journal", l))
	}
	k.ts = time.Unix(0, int64(binary.BigEndian.Uint64(data)))
}

type value struct {
	MemTotal     uint64  `cbor:"0,keyasint"`
	MemFree      uint64  `cbor:"1,keyasint"`
	MemAvailable uint64  `cbor:"2,keyasint"`
	CPUUsed      float64 `cbor:"3,keyasint"`
	CPUIdle      float64 `cbor:"4,keyasint"`
	CPUTotal     float64 `cbor:"5,keyasint"`
	CPUUsage     float64 `cbor:"6,keyasint"`
	Cores        int     `cbor:"7,keyasint"`
	CPUTime      uint64  `cbor:"8,keyasint"`
	AddressSpace uint64  `cbor:"9,keyasint"`
	Processes    uint64  `cbor:"10,keyasint"`
	CgroupPath   string  `cbor:"11,keyasint"`
	MemoryLimit  uint64  `cbor:"12,keyasint"`
}

func newValue(s sysinfo.Sample) *value {
	return &value{
		MemTotal:     s.Memory.Total,
		MemFree:      s.Memory.Free,
		MemAvailable: s.Memory.Available,
		CPUUsed:      s.CPU.Used,
		CPUIdle:      s.CPU.Idle,
		CPUTotal:     s.CPU.Total,
		CPUUsage:     s.CPU.Usage,
		Cores:        s.CPU.Cores,
		CPUTime:      s.Limits.CPUTime,
		AddressSpace: s.Limits.AddressSpace,
		Processes:    s.Limits.Processes,
		CgroupPath:   s.Cgroup.Path,
		MemoryLimit:  s.Cgroup.MemoryLimit,
	}
}

// The timestamp is not duplicated in the value, it is restored from the key.
func (v *value) sample(ts time.Time) sysinfo.Sample {
	return sysinfo.Sample{
		Timestamp: ts,
		Memory: sysinfo.Memory{
			Total:     v.MemTotal,
			Free:      v.MemFree,
			Available: v.MemAvailable,
		},
		CPU: sysinfo.CPU{
			Used:  v.CPUUsed,
			Idle:  v.CPUIdle,
			Total: v.CPUTotal,
			Usage: v.CPUUsage,
			Cores: v.Cores,
		},
		Limits: sysinfo.Limits{
			CPUTime:      v.CPUTime,
			AddressSpace: v.AddressSpace,
			Processes:    v.Processes,
		},
		Cgroup: sysinfo.Cgroup{
			Path:        v.CgroupPath,
			MemoryLimit: v.MemoryLimit,
		},
	}
}

// Journal is an on-disk ring of system resource samples keyed by collection
// time. It retains collaborator telemetry only, peer handle state is never
// written to disk.
type Journal struct {
	db *leveldb.DB
}

func NewJournal(path string) (*Journal, error) {
	db, err := leveldb.OpenFile(filepath.Clean(filepath.Join(path, storagePath)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Put(sample sysinfo.Sample) error {
	b, err := cbor.Marshal(newValue(sample))
	if err != nil {
		return fmt.Errorf("failed to store sample: %w", err)
	}
	batch := new(leveldb.Batch)
	k := key{ts: sample.Timestamp}
	batch.Put(k.bytes(), b)
	if wErr := j.db.Write(batch, nil); wErr != nil {
		return fmt.Errorf("failed to store sample: %w", wErr)
	}
	return nil
}

// Samples returns up to limit most recent samples, newest first.
// Non-positive limit means everything.
func (j *Journal) Samples(limit int) ([]sysinfo.Sample, error) {
	sn, err := j.db.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to collect samples: %w", err)
	}
	defer sn.Release()
	it := sn.NewIterator(&util.Range{Start: nil, Limit: nil}, nil) // Empty range means everything.
	defer it.Release()
	r := make([]sysinfo.Sample, 0)
	for ok := it.Last(); ok; ok = it.Prev() {
		if limit > 0 && len(r) >= limit {
			break
		}
		k := new(key)
		k.fromBytes(it.Key())
		v := new(value)
		if umErr := cbor.Unmarshal(it.Value(), v); umErr != nil {
			return nil, fmt.Errorf("failed to collect samples: %w", umErr)
		}
		r = append(r, v.sample(k.ts))
	}
	return r, nil
}

// Trim deletes all but the keep most recent samples.
func (j *Journal) Trim(keep int) error {
	sn, err := j.db.GetSnapshot()
	if err != nil {
		return fmt.Errorf("failed to trim journal: %w", err)
	}
	defer sn.Release()
	it := sn.NewIterator(&util.Range{Start: nil, Limit: nil}, nil)
	defer it.Release()
	batch := new(leveldb.Batch)
	n := 0
	for ok := it.Last(); ok; ok = it.Prev() {
		n++
		if n <= keep {
			continue
		}
		batch.Delete(it.Key())
	}
	if batch.Len() == 0 {
		return nil
	}
	if wErr := j.db.Write(batch, nil); wErr != nil {
		return fmt.Errorf("failed to trim journal: %w", wErr)
	}
	return nil
}

// Len returns the number of retained samples.
func (j *Journal) Len() (int, error) {
	sn, err := j.db.GetSnapshot()
	if err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	defer sn.Release()
	it := sn.NewIterator(&util.Range{Start: nil, Limit: nil}, nil)
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	return n, nil
}
