package diagnostics

import (
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

type HostStats struct {
	RAMUsage    float64 `json:"ram_usage"`
	RAMTotal    uint64  `json:"ram_total"`
	RAMUsed     uint64  `json:"ram_used"`
	Uptime      uint64  `json:"uptime"`
	Hostname    string  `json:"hostname"`
	OS          string  `json:"os"`
	Platform    string  `json:"platform"`
	CollectedAt int64   `json:"collected_at"`
}

// Collector reads host statistics attached to task diagnostics
type Collector struct{}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Collect() (*HostStats, error) {
	stats := &HostStats{
		CollectedAt: time.Now().Unix(),
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}
	stats.RAMUsage = memInfo.UsedPercent
	stats.RAMTotal = memInfo.Total
	stats.RAMUsed = memInfo.Used

	hostInfo, err := host.Info()
	if err == nil {
		stats.Uptime = hostInfo.Uptime
		stats.Hostname = hostInfo.Hostname
		stats.OS = hostInfo.OS
		stats.Platform = hostInfo.Platform
	}

	return stats, nil
}

// MemoryUsedPercent reports host memory use for task completion diagnostics
func (c *Collector) MemoryUsedPercent() (float64, error) {
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return memInfo.UsedPercent, nil
}
