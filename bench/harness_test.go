package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Infof(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

func (r *recorder) count(substr string) int {
	n := 0
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func sleepyWorkload(calls *int) Workload {
	return Workload{
		Name:     "dslash",
		Lanes:    8,
		Sites:    128,
		RealSize: 4,
		Sign:     1,
		Apply: func() error {
			*calls++
			time.Sleep(100 * time.Microsecond)
			return nil
		},
	}
}

func TestRunFixedIters(t *testing.T) {
	var calls int
	rec := &recorder{}
	res, err := Run(context.Background(), sleepyWorkload(&calls), Config{FixedIters: 2, Reps: 3}, rec)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Iters)
	assert.Len(t, res.Reps, 3)
	assert.Equal(t, 1+1+2*3, calls, "warm-up + calibration + reps*iters")
	for _, r := range res.Reps {
		assert.Equal(t, 2, r.Iters)
		assert.Positive(t, r.GFlops)
		assert.GreaterOrEqual(t, r.Elapsed, 200*time.Microsecond)
	}
	assert.GreaterOrEqual(t, res.BestGFlops(), res.MeanGFlops())

	assert.Equal(t, 1, rec.count("Running Dslash timing for VectorLength=8"))
	assert.Equal(t, 1, rec.count("Setting Timing iters=2"))
	// Calibration plus 3 reps, each with a full R sweep.
	assert.Equal(t, 4, rec.count("R=7 Effective Total BW (RFO=1)"))
	assert.Equal(t, 4, rec.count("R=0 Effective READ BW (RFO=0)"))
	assert.Equal(t, 3, rec.count("Time for 2 iters"))
	assert.Equal(t, 1, rec.count("Overall stats"))
	assert.Equal(t, 1, rec.count("Per Kernel counts"))
	assert.Equal(t, 8, rec.count("RFO=0  Bytes Read/kernel"))
}

func TestRunCalibratesIters(t *testing.T) {
	var calls int
	res, err := Run(context.Background(), sleepyWorkload(&calls), Config{TargetTime: time.Nanosecond, Reps: 1}, &recorder{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iters, "iteration count never drops below one")
	assert.Positive(t, res.Calibration)
}

func TestRunPerKernelCounts(t *testing.T) {
	var calls int
	rec := &recorder{}
	_, err := Run(context.Background(), sleepyWorkload(&calls), Config{FixedIters: 1, Reps: 1}, rec)
	require.NoError(t, err)

	// 128 sites of float32, R=0: read (8*24+8*18)*4*128 = 172032, write 12288.
	assert.Equal(t, 1, rec.count("R=0 RFO=0  Bytes Read/kernel: 172032  Bytes Written/kernel: 12288   Total bytes/kernel: 184320"))
	assert.Equal(t, 1, rec.count("R=0 RFO=1  Bytes Read/kernel: 184320  Bytes Written/kernel: 12288   Total bytes/kernel: 196608"))
}

func TestRunApplyError(t *testing.T) {
	boom := errors.New("boom")
	n := 0
	w := Workload{Name: "dslash", Sites: 1, RealSize: 8, Apply: func() error {
		n++
		if n == 3 {
			return boom
		}
		return nil
	}}
	res, err := Run(context.Background(), w, Config{FixedIters: 1, Reps: 3}, &recorder{})
	require.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.Empty(t, res.Reps)

	_, err = Run(context.Background(), Workload{Sites: 1, RealSize: 4}, DefaultConfig(), &recorder{})
	assert.Error(t, err)
}

func TestRunCanceled(t *testing.T) {
	var calls int
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, sleepyWorkload(&calls), Config{FixedIters: 5, Reps: 3}, &recorder{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Reps)
	assert.Equal(t, 2, calls, "warm-up and calibration run before the first check")
}

func TestWriterReporterGroupsDigits(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriterReporter(&buf, language.English)
	r.Infof("Bytes Read: %d", 1234567)
	r.Infof("done\n")
	assert.Equal(t, "Bytes Read: 1,234,567\ndone\n", buf.String())
}

func TestSlogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewSlogReporter(slog.New(slog.NewTextHandler(&buf, nil)))
	r.Infof("isign=%d Performance: %d GFLOPS\n", 1, 42)
	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="isign=1 Performance: 42 GFLOPS"`)
}
