// Package config holds the process-wide settings for building,
// serializing, and serving an index: HNSW build parameters, search
// defaults, scheduler placement, and on-disk storage options. It
// mirrors the teacher's config package's Default/LoadFromEnv/Validate
// shape, narrowed to this module's scope (no server/cache/database
// sections, since there is no REST/gRPC layer or query cache here).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/vecxdb/vecx/pkg/scheduler"
	"github.com/vecxdb/vecx/pkg/vxerrors"
)

// Config is the top-level process configuration.
type Config struct {
	Build     BuildConfig
	Search    SearchConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
}

// BuildConfig controls HNSW graph construction.
type BuildConfig struct {
	M              int // neighbors per node above layer 0 (default: 16)
	EfConstruction int // construction-time beam width (default: 200)
	Dimensions     int // expected vector dimension (default: 768)
	Seed           int64
}

// SearchConfig controls query-time defaults. DefaultEF is loaded and
// validated here; no other package reads it, and MmapIndex.Search takes
// ef as an explicit argument.
type SearchConfig struct {
	DefaultEF int // beam width used when a caller doesn't override ef (default: 64)
}

// SchedulerMode names the scheduler.Mode this config resolves to, kept
// as a string here so it round-trips through an environment variable
// unchanged.
type SchedulerMode string

const (
	ModeDefault  SchedulerMode = "default"
	ModeSaturate SchedulerMode = "saturate"
	ModeSafe     SchedulerMode = "safe"
)

// SchedulerConfig controls worker pool placement and backpressure. The
// scheduler's NewServer reads Mode and QueueDepth; CalibrateOnLoad and
// CalibrationTTL are loaded and validated here but no other package
// reads them.
type SchedulerConfig struct {
	Mode            SchedulerMode
	QueueDepth      int
	CalibrateOnLoad bool          // run the Pareto-EF sweep once at startup
	CalibrationTTL  time.Duration // how long a calibrated ef stays trusted
}

// StorageConfig controls where and how the index is persisted.
// Obfuscate and HugePages are loaded and validated here but no other
// package reads them: serialize.Save always obfuscates the f32 arena and
// never sets the huge-pages flag.
type StorageConfig struct {
	IndexPath string // path to the serialized index file
	Obfuscate bool   // XOR-obfuscate the full-precision arena
	HugePages bool   // request MADV_HUGEPAGE on load
}

// Default returns the baseline configuration every field above documents.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			M:              16,
			EfConstruction: 200,
			Dimensions:     768,
			Seed:           0,
		},
		Search: SearchConfig{
			DefaultEF: 64,
		},
		Scheduler: SchedulerConfig{
			Mode:            ModeDefault,
			QueueDepth:      scheduler.DefaultQueueDepth(),
			CalibrateOnLoad: false,
			CalibrationTTL:  time.Hour,
		},
		Storage: StorageConfig{
			IndexPath: "./index.vx",
			Obfuscate: true,
			HugePages: false,
		},
	}
}

// LoadFromEnv overlays environment variables onto Default(), following
// the same "VECX_<SECTION>_<FIELD>" naming the teacher uses for its
// own "VECTOR_*" variables.
func LoadFromEnv() *Config {
	cfg := Default()

	if m := os.Getenv("VECX_BUILD_M"); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			cfg.Build.M = v
		}
	}
	if ef := os.Getenv("VECX_BUILD_EF_CONSTRUCTION"); ef != "" {
		if v, err := strconv.Atoi(ef); err == nil {
			cfg.Build.EfConstruction = v
		}
	}
	if dims := os.Getenv("VECX_BUILD_DIMENSIONS"); dims != "" {
		if v, err := strconv.Atoi(dims); err == nil {
			cfg.Build.Dimensions = v
		}
	}
	if seed := os.Getenv("VECX_BUILD_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Build.Seed = v
		}
	}

	if ef := os.Getenv("VECX_SEARCH_DEFAULT_EF"); ef != "" {
		if v, err := strconv.Atoi(ef); err == nil {
			cfg.Search.DefaultEF = v
		}
	}

	if mode := os.Getenv("VECX_SCHEDULER_MODE"); mode != "" {
		cfg.Scheduler.Mode = SchedulerMode(mode)
	}
	if qd := os.Getenv("VECX_SCHEDULER_QUEUE_DEPTH"); qd != "" {
		if v, err := strconv.Atoi(qd); err == nil {
			cfg.Scheduler.QueueDepth = v
		}
	}
	if cal := os.Getenv("VECX_SCHEDULER_CALIBRATE_ON_LOAD"); cal == "true" {
		cfg.Scheduler.CalibrateOnLoad = true
	}
	if ttl := os.Getenv("VECX_SCHEDULER_CALIBRATION_TTL"); ttl != "" {
		if v, err := time.ParseDuration(ttl); err == nil {
			cfg.Scheduler.CalibrationTTL = v
		}
	}

	if path := os.Getenv("VECX_STORAGE_INDEX_PATH"); path != "" {
		cfg.Storage.IndexPath = path
	}
	if obf := os.Getenv("VECX_STORAGE_OBFUSCATE"); obf == "false" {
		cfg.Storage.Obfuscate = false
	}
	if hp := os.Getenv("VECX_STORAGE_HUGE_PAGES"); hp == "true" {
		cfg.Storage.HugePages = true
	}

	return cfg
}

// Validate checks the configuration against the bounds the rest of
// the module enforces at runtime, so misconfiguration surfaces at
// startup instead of inside a build or search call.
func (c *Config) Validate() error {
	if c.Build.M < 2 || c.Build.M > 64 {
		return vxerrors.NewConfigError("build.m", "must be between 2 and 64")
	}
	if c.Build.EfConstruction < c.Build.M {
		return vxerrors.NewConfigError("build.ef_construction", "must be >= m")
	}
	if c.Build.Dimensions < 1 {
		return vxerrors.NewConfigError("build.dimensions", "must be positive")
	}

	if c.Search.DefaultEF < 1 {
		return vxerrors.NewConfigError("search.default_ef", "must be positive")
	}

	switch c.Scheduler.Mode {
	case ModeDefault, ModeSaturate, ModeSafe:
	default:
		return vxerrors.NewConfigError("scheduler.mode", "must be one of default, saturate, safe")
	}
	if c.Scheduler.QueueDepth < 1 {
		return vxerrors.NewConfigError("scheduler.queue_depth", "must be positive")
	}

	if c.Storage.IndexPath == "" {
		return vxerrors.NewConfigError("storage.index_path", "must not be empty")
	}

	return nil
}
