package aggregate

import (
	"time"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

// IsStale reports whether the device has been silent longer than threshold.
// A device that never reported is stale.
func IsStale(d domain.EcoBoxDevice, now time.Time, threshold time.Duration) bool {
	if d.LastDataReceived == nil {
		return true
	}
	return now.Sub(*d.LastDataReceived) > threshold
}

// CapacityPercentage is currentCapacity/totalCapacity*100; zero for a device with no capacity.
func CapacityPercentage(d domain.EcoBoxDevice) float64 {
	if d.TotalCapacity <= 0 {
		return 0
	}
	return round2(float64(d.CurrentCapacity) / float64(d.TotalCapacity) * 100)
}

// DecorateDevice fills the derived display fields. Status is never touched.
func DecorateDevice(d domain.EcoBoxDevice, now time.Time, threshold time.Duration) domain.EcoBoxDevice {
	d.Stale = IsStale(d, now, threshold)
	d.DisplayStatus = d.Status
	if d.Stale {
		d.DisplayStatus = domain.DeviceOffline
	}
	d.CapacityPercentage = CapacityPercentage(d)
	return d
}

// DecorateSchool recomputes the impact fields and decorates every device.
func DecorateSchool(s domain.School, now time.Time, threshold time.Duration) domain.School {
	impact := ImpactOf(s.TotalPapers)
	s.SavedTrees = impact.SavedTrees
	s.CarbonReduced = impact.CarbonReducedKg

	devices := make([]domain.EcoBoxDevice, len(s.EcoBoxDevices))
	for i, d := range s.EcoBoxDevices {
		devices[i] = DecorateDevice(d, now, threshold)
	}
	s.EcoBoxDevices = devices
	return s
}
