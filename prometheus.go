package multiarena

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// statsCollector implements prometheus.Collector for a StatsAllocator.
// The gauges are derived at scrape time from the allocator's own
// bookkeeping; the block-size histogram is the one exception, fed by
// observe on every allocation made after registration.
type statsCollector struct {
	stats *StatsAllocator

	bytesAllocated    *prometheus.Desc
	numAllocations    *prometheus.Desc
	busyArenas        *prometheus.Desc
	maxBusyArenas     *prometheus.Desc
	maxNumAllocations *prometheus.Desc
	blockSize         *prometheus.Desc

	// buckets recorded independently of Histogram() so a scrape still
	// reflects allocations that have since been freed, the way a real
	// Prometheus histogram accumulates rather than resets.
	histMu  chan struct{} // 1-slot semaphore, cheaper than a sync.Mutex field here
	buckets map[uintptr]uint64
}

const metricsNamespace = "multiarena"

func newStatsCollector(s *StatsAllocator) *statsCollector {
	c := &statsCollector{
		stats: s,
		bytesAllocated: prometheus.NewDesc(
			metricsNamespace+"_bytes_allocated", "Sum of live allocation sizes in bytes.", nil, nil),
		numAllocations: prometheus.NewDesc(
			metricsNamespace+"_num_allocations", "Current number of live allocations.", nil, nil),
		busyArenas: prometheus.NewDesc(
			metricsNamespace+"_busy_arenas", "Current number of arenas with at least one live allocation.", nil, nil),
		maxBusyArenas: prometheus.NewDesc(
			metricsNamespace+"_max_busy_arenas", "Largest number of busy arenas observed over the allocator's lifetime.", nil, nil),
		maxNumAllocations: prometheus.NewDesc(
			metricsNamespace+"_max_num_allocations", "Largest number of live allocations observed over the allocator's lifetime.", nil, nil),
		blockSize: prometheus.NewDesc(
			metricsNamespace+"_block_size_bytes", "Distribution of allocation sizes in bytes, including allocations since freed.", nil, nil),
		histMu:  make(chan struct{}, 1),
		buckets: make(map[uintptr]uint64),
	}
	c.histMu <- struct{}{}
	return c
}

func (c *statsCollector) observe(bytes uintptr) {
	<-c.histMu
	c.buckets[bytes]++
	c.histMu <- struct{}{}
}

// Describe implements prometheus.Collector.
func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytesAllocated
	ch <- c.numAllocations
	ch <- c.busyArenas
	ch <- c.maxBusyArenas
	ch <- c.maxNumAllocations
	ch <- c.blockSize
}

// Collect implements prometheus.Collector.
func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.bytesAllocated, prometheus.GaugeValue, float64(c.stats.BytesAllocated()))
	ch <- prometheus.MustNewConstMetric(c.numAllocations, prometheus.GaugeValue, float64(c.stats.NumAllocations()))
	ch <- prometheus.MustNewConstMetric(c.busyArenas, prometheus.GaugeValue, float64(c.stats.NumBusyArenas()))
	ch <- prometheus.MustNewConstMetric(c.maxBusyArenas, prometheus.GaugeValue, float64(c.stats.MaxBusyArenas()))
	ch <- prometheus.MustNewConstMetric(c.maxNumAllocations, prometheus.GaugeValue, float64(c.stats.MaxNumAllocations()))

	<-c.histMu
	sizes := make([]uintptr, 0, len(c.buckets))
	sum := 0.0
	for size, n := range c.buckets {
		sizes = append(sizes, size)
		sum += float64(size) * float64(n)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	cumulative := make(map[float64]uint64, len(sizes))
	var running uint64
	for _, size := range sizes {
		running += c.buckets[size]
		cumulative[float64(size)] = running
	}
	c.histMu <- struct{}{}
	ch <- prometheus.MustNewConstHistogram(c.blockSize, running, sum, cumulative)
}

// RegisterMetrics registers a Prometheus collector exposing this
// allocator's statistics on reg. Safe to call at most once per
// StatsAllocator.
func (s *StatsAllocator) RegisterMetrics(reg prometheus.Registerer) error {
	s.mu.Lock()
	if s.collector == nil {
		s.collector = newStatsCollector(s)
	}
	c := s.collector
	s.mu.Unlock()
	return reg.Register(c)
}
