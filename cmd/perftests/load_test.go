package perftests

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bidding "bidwar/internal/biddingService"
)

// LoadScenario defines configurable benchmark parameters
type LoadScenario struct {
	Name         string
	Participants int
	Projects     int
	ReadRatio    int  // out of 10
	WithdrawRate int  // out of 100 writes
	Burst        bool // if true, no delay between ops
}

// OperationMetrics collects latencies safely
type OperationMetrics struct {
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(d time.Duration) {
	om.mu.Lock()
	om.latencies = append(om.latencies, d)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (min, max, avg, p95, p99 time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.latencies...)
	om.mu.Unlock()
	if len(latencies) == 0 {
		return
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	min = latencies[0]
	max = latencies[len(latencies)-1]

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	avg = total / time.Duration(len(latencies))
	p95 = latencies[int(0.95*float64(len(latencies)))]
	p99 = latencies[int(0.99*float64(len(latencies)))]
	return
}

// setupProjects creates a bidding service with open projects
func setupProjects(b *testing.B, numProjects int) *bidding.BiddingService {
	svc := newBenchService(b)
	for i := 0; i < numProjects; i++ {
		createBenchProject(b, svc, fmt.Sprintf("project_%d", i))
	}
	return svc
}

// Benchmark_Load_BiddingSystem runs multiple scenarios
func Benchmark_Load_BiddingSystem(b *testing.B) {
	scenarios := []LoadScenario{
		{"Low-Contention-WriteHeavy", 200, 200, 0, 0, false},
		{"High-Contention-WriteHeavy", 500, 10, 0, 5, false},
		{"Mixed-Workload", 300, 50, 7, 5, false},
		{"ReadHeavy", 200, 50, 9, 0, false},
		{"Edge-Case-SingleProject", 100, 1, 5, 10, false},
		{"Peak-Burst", 500, 50, 0, 0, true},
	}

	for _, s := range scenarios {
		b.Run(s.Name, func(b *testing.B) {
			runParallelScenario(b, s)
		})
	}
}

func runParallelScenario(b *testing.B, s LoadScenario) {
	b.ReportAllocs()

	svc := setupProjects(b, s.Projects)
	ctx := context.Background()

	var totalOps, successfulBids, failedBids, withdrawals, totalReads int64
	projectSuccess := make([]int64, s.Projects)
	metrics := &OperationMetrics{}

	start := time.Now()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			projectIndex := rnd.Intn(s.Projects)
			projectID := fmt.Sprintf("project_%d", projectIndex)
			participantID := fmt.Sprintf("user_%d", rnd.Intn(s.Participants))
			opType := rnd.Intn(10)

			opStart := time.Now()
			switch {
			case opType < s.ReadRatio:
				if _, err := svc.GetRankedView(ctx, projectID); err != nil {
					b.Logf("ignored read error: %v", err)
				}
				atomic.AddInt64(&totalReads, 1)
			case rnd.Intn(100) < s.WithdrawRate:
				if err := svc.WithdrawBid(ctx, projectID, participantID); err == nil {
					atomic.AddInt64(&withdrawals, 1)
				}
			default:
				if _, err := svc.SubmitBid(ctx, projectID, participantID, randomAmount(rnd)); err != nil {
					atomic.AddInt64(&failedBids, 1)
				} else {
					atomic.AddInt64(&successfulBids, 1)
					atomic.AddInt64(&projectSuccess[projectIndex], 1)
				}
			}

			metrics.Record(time.Since(opStart))
			atomic.AddInt64(&totalOps, 1)

			if !s.Burst {
				time.Sleep(time.Millisecond)
			}
		}
	})

	elapsed := time.Since(start)
	throughput := float64(totalOps) / elapsed.Seconds()
	min, max, avg, p95, p99 := metrics.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	b.Logf(
		"Scenario: %s | Projects: %d | Total Ops: %d | Success Bids: %d | Failed Bids: %d | Withdrawals: %d | Reads: %d | Elapsed: %s | Throughput: %.2f ops/sec | Latency(us) min: %.2f avg: %.2f max: %.2f p95: %.2f p99: %.2f | Memory Alloc: %.2f MB",
		s.Name, s.Projects, totalOps, successfulBids, failedBids, withdrawals, totalReads, elapsed,
		throughput,
		float64(min.Microseconds()), float64(avg.Microseconds()), float64(max.Microseconds()),
		float64(p95.Microseconds()), float64(p99.Microseconds()),
		float64(mem.Alloc)/1024/1024,
	)

	for i, v := range projectSuccess {
		if v > 0 {
			b.Logf("Project %d successful bids: %d", i, v)
		}
	}
}
