package batch

import (
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/edgecomet/preview/internal/common/configtypes"
)

const (
	// Each site keeps up to two Chrome tabs plus the processed document in memory
	perSiteBytes  = int64(400 * 1024 * 1024)
	reservedBytes = int64(1024 * 1024 * 1024)
	fallbackBytes = int64(4 * 1024 * 1024 * 1024)

	minAutoConcurrency = 1
	maxAutoConcurrency = 8
)

// ResolveConcurrency turns the batch.concurrency setting into a worker count.
// "auto" sizes it from available memory.
func ResolveConcurrency(setting string) (int, error) {
	if setting == "" || setting == configtypes.ConcurrencyAuto {
		return autoConcurrency(), nil
	}

	n, err := strconv.Atoi(setting)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("batch concurrency must be %q or a positive integer, got %q", configtypes.ConcurrencyAuto, setting)
	}
	return n, nil
}

func autoConcurrency() int {
	availableBytes := fallbackBytes
	if v, err := mem.VirtualMemory(); err == nil {
		availableBytes = int64(v.Available)
	}
	return concurrencyForMemory(availableBytes)
}

func concurrencyForMemory(availableBytes int64) int {
	n := int((availableBytes - reservedBytes) / perSiteBytes)
	if n < minAutoConcurrency {
		n = minAutoConcurrency
	}
	if n > maxAutoConcurrency {
		n = maxAutoConcurrency
	}
	return n
}
