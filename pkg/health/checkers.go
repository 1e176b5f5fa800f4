package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		count := runtime.NumGoroutine()
		if count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when any recent stop-the-world pause exceeded
// threshold.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		for _, pause := range stats.Pause {
			if pause > threshold {
				return errors.Errorf("GC pause %s exceeds threshold %s", pause, threshold)
			}
		}
		return nil
	}
}

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when the database does not answer a ping.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// PoolStat is the part of *pgxpool.Stat read by PoolSaturationCheck.
type PoolStat interface {
	AcquiredConns() int32
	MaxConns() int32
}

// PoolSaturationCheck fails when the share of acquired connections reaches
// maxRatio.
func PoolSaturationCheck(stat func() PoolStat, maxRatio float64) CheckFunc {
	return func(_ context.Context) error {
		st := stat()
		total := st.MaxConns()
		if total <= 0 {
			return nil
		}
		acquired := st.AcquiredConns()
		if float64(acquired)/float64(total) >= maxRatio {
			return errors.Errorf("connection pool saturated: %d/%d acquired", acquired, total)
		}
		return nil
	}
}
