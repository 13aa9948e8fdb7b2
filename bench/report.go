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

package bench

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Reporter receives the harness output, one line per call.
type Reporter interface {
	Infof(format string, args ...any)
}

// WriterReporter prints lines to an io.Writer with locale-aware number
// formatting (digit grouping in byte counts).
type WriterReporter struct {
	mu sync.Mutex
	w  io.Writer
	p  *message.Printer
}

// NewWriterReporter returns a reporter writing to w, formatting numbers for
// tag.
func NewWriterReporter(w io.Writer, tag language.Tag) *WriterReporter {
	return &WriterReporter{w: w, p: message.NewPrinter(tag)}
}

func (r *WriterReporter) Infof(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p.Fprintf(r.w, format, args...)
	if !strings.HasSuffix(format, "\n") {
		io.WriteString(r.w, "\n")
	}
}

// SlogReporter forwards lines to a structured logger at Info level.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter returns a reporter logging through logger. A nil logger
// uses slog.Default().
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

func (r *SlogReporter) Infof(format string, args ...any) {
	r.logger.Info(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
