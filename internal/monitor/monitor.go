package monitor

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Monitor collects host resource usage into Prometheus gauges.
type Monitor struct {
	registry *prometheus.Registry
	diskPath string

	cpuGauge    prometheus.Gauge
	memoryGauge prometheus.Gauge
	diskGauge   prometheus.Gauge
}

// New registers the system gauges on registry. A nil registry gets a fresh
// one, which keeps tests isolated from the default registerer.
func New(registry *prometheus.Registry) *Monitor {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Monitor{
		registry: registry,
		diskPath: "/",
		cpuGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "system_cpu_usage",
			Help: "Current CPU usage in percentage",
		}),
		memoryGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "system_memory_usage",
			Help: "Current memory usage in percentage",
		}),
		diskGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "system_disk_usage",
			Help: "Current disk usage in percentage",
		}),
	}

	registry.MustRegister(m.cpuGauge, m.memoryGauge, m.diskGauge)
	return m
}

func (m *Monitor) CollectCPU() (float64, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return 0, fmt.Errorf("collect cpu: %w", err)
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("collect cpu: no samples")
	}

	m.cpuGauge.Set(percents[0])
	return percents[0], nil
}

func (m *Monitor) CollectMemory() (*mem.VirtualMemoryStat, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("collect memory: %w", err)
	}

	m.memoryGauge.Set(vm.UsedPercent)
	return vm, nil
}

func (m *Monitor) CollectDisk() (*disk.UsageStat, error) {
	usage, err := disk.Usage(m.diskPath)
	if err != nil {
		return nil, fmt.Errorf("collect disk: %w", err)
	}

	m.diskGauge.Set(usage.UsedPercent)
	return usage, nil
}

// Update refreshes all gauges, returning the first collection error.
func (m *Monitor) Update() error {
	if _, err := m.CollectCPU(); err != nil {
		return err
	}
	if _, err := m.CollectMemory(); err != nil {
		return err
	}
	if _, err := m.CollectDisk(); err != nil {
		return err
	}
	return nil
}

// Handler serves the monitor's registry over HTTP.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
