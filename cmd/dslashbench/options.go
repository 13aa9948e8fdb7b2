// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/ajroetker/go-dslash/device"
	"github.com/ajroetker/go-dslash/lattice"
)

// options is the resolved command line, environment and config file.
type options struct {
	Geometry    lattice.Geometry
	VectorLen   int
	Precision   string
	Sign        int
	Iters       int
	Reps        int
	Target      time.Duration
	Workers     int
	Batch       int
	Seed        uint64
	MemoryLimit int64
	LogFormat   string
	Locale      language.Tag
	Verify      bool
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.String("lattice", "32,32,32,32", "lattice extents x,y,z,t (all even)")
	flags.Int("vlen", 0, "vector length V in {1,2,4,8,16}; 0 picks the natural SIMD width")
	flags.String("precision", "float32", "float32 or float64")
	flags.Int("isign", 1, "Dslash sign, +1 or -1")
	flags.Int("iters", 0, "fixed iterations per repetition; 0 calibrates against --target")
	flags.Int("reps", 3, "timed repetitions")
	flags.Duration("target", 10*time.Second, "wall time per repetition when calibrating")
	flags.Int("workers", 0, "worker goroutines; 0 uses GOMAXPROCS")
	flags.Int("batch", device.DefaultBatch, "lane groups per worker grab")
	flags.Uint64("seed", 1, "seed of the random gauge and spinor fields")
	flags.Int64("memory-limit", 0, "device memory budget in bytes; 0 is unlimited")
	flags.String("log-format", "text", "report format: text, slog-text or slog-json")
	flags.String("locale", "en", "locale for number formatting in text reports")
	flags.Bool("verify", false, "check one application against the scalar reference before timing")
}

// newViper binds flags so each can also be set as DSLASH_<NAME> in the
// environment or as a key in the config file.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	v.SetEnvPrefix("DSLASH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v, nil
}

func loadOptions(v *viper.Viper) (options, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return options{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	geom, err := parseLattice(v.GetString("lattice"))
	if err != nil {
		return options{}, err
	}
	tag, err := language.Parse(v.GetString("locale"))
	if err != nil {
		return options{}, fmt.Errorf("%w: locale %q: %v", lattice.ErrConfiguration, v.GetString("locale"), err)
	}
	opts := options{
		Geometry:    geom,
		VectorLen:   v.GetInt("vlen"),
		Precision:   strings.ToLower(v.GetString("precision")),
		Sign:        v.GetInt("isign"),
		Iters:       v.GetInt("iters"),
		Reps:        v.GetInt("reps"),
		Target:      v.GetDuration("target"),
		Workers:     v.GetInt("workers"),
		Batch:       v.GetInt("batch"),
		Seed:        v.GetUint64("seed"),
		MemoryLimit: v.GetInt64("memory-limit"),
		LogFormat:   v.GetString("log-format"),
		Locale:      tag,
		Verify:      v.GetBool("verify"),
	}
	return opts, opts.validate()
}

func (o options) validate() error {
	if !lo.Contains([]string{"float32", "float64"}, o.Precision) {
		return fmt.Errorf("%w: precision %q, want float32 or float64", lattice.ErrConfiguration, o.Precision)
	}
	if o.Sign != 1 && o.Sign != -1 {
		return fmt.Errorf("%w: isign %d, want +1 or -1", lattice.ErrConfiguration, o.Sign)
	}
	if o.VectorLen != 0 && !lo.Contains(lattice.VectorLengths, o.VectorLen) {
		return fmt.Errorf("%w: vlen %d not in %v", lattice.ErrConfiguration, o.VectorLen, lattice.VectorLengths)
	}
	if !lo.Contains([]string{"text", "slog-text", "slog-json"}, o.LogFormat) {
		return fmt.Errorf("%w: log format %q", lattice.ErrConfiguration, o.LogFormat)
	}
	if o.Reps <= 0 {
		return fmt.Errorf("%w: reps %d must be positive", lattice.ErrConfiguration, o.Reps)
	}
	return nil
}

// parseLattice parses "x,y,z,t" into a validated geometry.
func parseLattice(s string) (lattice.Geometry, error) {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string { return strings.TrimSpace(p) })
	if len(parts) != lattice.NumDims {
		return lattice.Geometry{}, fmt.Errorf("%w: lattice %q needs %d extents", lattice.ErrConfiguration, s, lattice.NumDims)
	}
	var g lattice.Geometry
	for mu, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return lattice.Geometry{}, fmt.Errorf("%w: lattice extent %q: %v", lattice.ErrConfiguration, p, err)
		}
		g[mu] = n
	}
	return g, g.Validate()
}
