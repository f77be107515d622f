// Package scheduler discovers host CPU topology and runs a pinned
// worker pool that dispatches search queries off a bounded queue,
// avoiding hyperthread contention in the SIMD-heavy search hot path.
package scheduler

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/vecxdb/vecx/pkg/vxerrors"
)

// CPU describes one logical CPU as reported by /proc/cpuinfo.
type CPU struct {
	Logical  int
	Physical int // physical_id
	Core     int // core_id
}

// Topology is the host's logical-to-physical CPU map.
type Topology struct {
	CPUs []CPU
}

// key identifies a physical core across sockets.
type key struct {
	physical, core int
}

// Representatives returns the first logical CPU discovered in each
// distinct (physical_id, core_id) group, sorted by physical id then
// core id then logical id — these are the CPUs the default pool size
// and placement are based on.
func (t Topology) Representatives() []CPU {
	seen := make(map[key]bool)
	var reps []CPU
	for _, c := range t.CPUs {
		k := key{c.Physical, c.Core}
		if seen[k] {
			continue
		}
		seen[k] = true
		reps = append(reps, c)
	}
	sort.Slice(reps, func(i, j int) bool {
		if reps[i].Physical != reps[j].Physical {
			return reps[i].Physical < reps[j].Physical
		}
		if reps[i].Core != reps[j].Core {
			return reps[i].Core < reps[j].Core
		}
		return reps[i].Logical < reps[j].Logical
	})
	return reps
}

// Siblings returns every logical CPU that is NOT a representative of
// its physical core — i.e. the hyperthread siblings — sorted by
// logical id only (Representatives sorts by physical id, core id, then
// logical id).
func (t Topology) Siblings() []CPU {
	repSet := make(map[int]bool)
	for _, r := range t.Representatives() {
		repSet[r.Logical] = true
	}
	var sib []CPU
	for _, c := range t.CPUs {
		if !repSet[c.Logical] {
			sib = append(sib, c)
		}
	}
	sort.Slice(sib, func(i, j int) bool { return sib[i].Logical < sib[j].Logical })
	return sib
}

// LogicalCount is the total number of logical CPUs discovered.
func (t Topology) LogicalCount() int { return len(t.CPUs) }

// PhysicalCount is the number of distinct physical cores discovered.
func (t Topology) PhysicalCount() int { return len(t.Representatives()) }

// DiscoverTopology parses /proc/cpuinfo into a Topology. Each "processor"
// block yields one CPU; physical_id/core_id default to 0 when absent
// (single-socket, single-core-field hosts, including most containers
// and VMs), so the parser never fails outright on a minimal cpuinfo.
func DiscoverTopology() (Topology, error) {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return Topology{}, vxerrors.NewIoError("open", "/proc/cpuinfo", err)
	}
	defer f.Close()
	return parseCPUInfo(f)
}

func parseCPUInfo(r *os.File) (Topology, error) {
	scanner := bufio.NewScanner(r)

	var cpus []CPU
	cur := CPU{Logical: -1}
	flush := func() {
		if cur.Logical >= 0 {
			cpus = append(cpus, cur)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			cur = CPU{Logical: -1}
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		field := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch field {
		case "processor":
			flush()
			n, err := strconv.Atoi(value)
			if err != nil {
				continue
			}
			cur = CPU{Logical: n}
		case "physical id":
			if n, err := strconv.Atoi(value); err == nil {
				cur.Physical = n
			}
		case "core id":
			if n, err := strconv.Atoi(value); err == nil {
				cur.Core = n
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return Topology{}, vxerrors.NewIoError("read", "/proc/cpuinfo", err)
	}
	if len(cpus) == 0 {
		return Topology{}, vxerrors.NewFormatError("/proc/cpuinfo: no processor entries found")
	}
	return Topology{CPUs: cpus}, nil
}
