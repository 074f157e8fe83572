// SPDX-FileCopyrightText : © 2022 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package leafsys

// config.go reduces the New API footprint using functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
//      https://commandcenter.blogspot.ca/2014/01/self-referential-functions-and-design.html

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config contains the tuning knobs a level can set before the system
// starts tracking renderables and shadows.
type Config struct {
	grid            float64 // bloat-bounds quantization grid, world units.
	minShrinkVolume float64 // hysteresis threshold below which a shrinking bloat is ignored.
	maxGroupEntries int     // per render-group emission cap before overflow is logged and dropped.
	maxDirtyPasses  int     // bounded retries for RecomputeRenderableLeaves convergence.

	// size-bucket thresholds, in descending order: Huge, Large, Medium.
	// anything smaller than bucketMedium is Small.
	bucketHuge, bucketLarge, bucketMedium int
}

// configDefaults mirror the constants found in the original
// CClientLeafSystem: a 32 unit bloat grid, a 32³ minimum shrink volume, a
// 10-iteration dirty-loop cap, and the 200/80/30 render-group thresholds.
var configDefaults = Config{
	grid:            32,
	minShrinkVolume: 32 * 32 * 32,
	maxGroupEntries: 4096,
	maxDirtyPasses:  10,
	bucketHuge:      200,
	bucketLarge:     80,
	bucketMedium:    30,
}

// Option defines optional system attributes that can be used to
// configure the leaf system.
//
//	sys := leafsys.New(bsp, engine, models, shadowMgr, detail,
//	   leafsys.Grid(32),
//	   leafsys.DirtyPasses(10),
//	   leafsys.SizeBuckets(200, 80, 30),
//	)
type Option func(*Config)

// Grid sets the bloat-bounds quantization grid size in world units.
// For use in New().
func Grid(units float64) Option {
	return func(c *Config) {
		if units > 0 {
			c.grid = units
		}
	}
}

// MinShrinkVolume sets the hysteresis threshold below which a shrinking
// bloated bounds keeps the old, larger bounds rather than re-tightening.
func MinShrinkVolume(volume float64) Option {
	return func(c *Config) {
		if volume >= 0 {
			c.minShrinkVolume = volume
		}
	}
}

// MaxGroupEntries caps how many renderables a single render group can
// accumulate in one frame before the overflow is logged and dropped.
func MaxGroupEntries(max int) Option {
	return func(c *Config) {
		if max > 0 {
			c.maxGroupEntries = max
		}
	}
}

// DirtyPasses caps how many times RecomputeRenderableLeaves retries
// reinsertion convergence before giving up for the frame.
func DirtyPasses(max int) Option {
	return func(c *Config) {
		if max > 0 {
			c.maxDirtyPasses = max
		}
	}
}

// SizeBuckets sets the Huge/Large/Medium render-group thresholds.
// Anything whose largest world-space extent is under medium is bucketed Small.
func SizeBuckets(huge, large, medium int) Option {
	return func(c *Config) {
		if huge > large && large > medium && medium > 0 {
			c.bucketHuge, c.bucketLarge, c.bucketMedium = huge, large, medium
		}
	}
}

// LevelConfig is the YAML-friendly form of Config, for level designers who
// need to retune bloat/grouping behaviour per level without a recompile.
type LevelConfig struct {
	Grid            float64 `yaml:"grid"`
	MinShrinkVolume float64 `yaml:"minShrinkVolume"`
	MaxGroupEntries int     `yaml:"maxGroupEntries"`
	DirtyPasses     int     `yaml:"dirtyPasses"`
	SizeBuckets     struct {
		Huge   int `yaml:"huge"`
		Large  int `yaml:"large"`
		Medium int `yaml:"medium"`
	} `yaml:"sizeBuckets"`
}

// LoadLevelConfig unmarshals a YAML level-tuning document. Fields left at
// their YAML zero value are not applied by Options(): the level file only
// needs to mention the knobs it wants to override.
func LoadLevelConfig(data []byte) (lc LevelConfig, err error) {
	if err = yaml.Unmarshal(data, &lc); err != nil {
		return lc, fmt.Errorf("LoadLevelConfig: yaml %w", err)
	}
	return lc, nil
}

// Options converts a LevelConfig into the Option values New() expects,
// skipping any knob left at its zero value.
func (lc LevelConfig) Options() []Option {
	opts := []Option{}
	if lc.Grid > 0 {
		opts = append(opts, Grid(lc.Grid))
	}
	if lc.MinShrinkVolume > 0 {
		opts = append(opts, MinShrinkVolume(lc.MinShrinkVolume))
	}
	if lc.MaxGroupEntries > 0 {
		opts = append(opts, MaxGroupEntries(lc.MaxGroupEntries))
	}
	if lc.DirtyPasses > 0 {
		opts = append(opts, DirtyPasses(lc.DirtyPasses))
	}
	if lc.SizeBuckets.Huge > 0 {
		opts = append(opts, SizeBuckets(lc.SizeBuckets.Huge, lc.SizeBuckets.Large, lc.SizeBuckets.Medium))
	}
	return opts
}
