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

// Package field holds lattice fields in the vectorized layout: spinors on one
// checkerboard, the single-copy gauge field, and the double-copy gauge field
// the stencil kernel reads.
//
// Every container owns a fresh buffer whose size is reserved on the device
// it was allocated for. Containers never share storage; snapshots are
// explicit (Clone, CopyFrom). Release hands the bytes back to the device and
// leaves the container unusable.
//
// Element accessors take (group, lane) positions as produced by
// lattice.Layout. Index checks on them are compiled in with the dslashdebug
// build tag; go test -tags dslashdebug runs the tests covering them.
package field

import "errors"

// ErrReleased is returned by operations on a container after Release.
var ErrReleased = errors.New("field released")
