package domain

import "time"

type School struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	City          string `json:"city"`
	Region        string `json:"region"`
	TotalStudents *int   `json:"totalStudents,omitempty"`
	TotalClasses  *int   `json:"totalClasses,omitempty"`
	TotalPapers   int    `json:"totalPapers"`
	MonthlyPapers *int   `json:"monthlyPapers,omitempty"`
	Ranking       *int   `json:"ranking,omitempty"`

	SavedTrees    float64 `json:"savedTrees"`
	CarbonReduced float64 `json:"carbonReduced"`

	EcoBoxDevices []EcoBoxDevice `json:"ecoBoxDevices"`
	Classes       []SchoolClass  `json:"classes"`
}

type SchoolClass struct {
	ID           string  `json:"id"`
	SchoolID     string  `json:"schoolId"`
	Name         string  `json:"name"`
	Grade        int     `json:"grade"`
	StudentCount *int    `json:"studentCount,omitempty"`
	TotalPapers  int     `json:"totalPapers"`
	TeacherID    *string `json:"teacherId,omitempty"`
	TeacherName  *string `json:"teacherName,omitempty"`
}

type DeviceStatus string

const (
	DeviceOnline      DeviceStatus = "online"
	DeviceOffline     DeviceStatus = "offline"
	DeviceMaintenance DeviceStatus = "maintenance"
	DeviceFull        DeviceStatus = "full"
)

func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceOnline, DeviceOffline, DeviceMaintenance, DeviceFull:
		return true
	}
	return false
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type EcoBoxDevice struct {
	ID       string `json:"id"`
	SchoolID string `json:"schoolId"`
	Location string `json:"location"`

	// Status is the stored value. DisplayStatus carries the read-time staleness override.
	Status        DeviceStatus `json:"status"`
	DisplayStatus DeviceStatus `json:"displayStatus"`
	Stale         bool         `json:"stale"`

	TotalCapacity      int     `json:"totalCapacity"`
	CurrentCapacity    int     `json:"currentCapacity"`
	CapacityPercentage float64 `json:"capacityPercentage"`

	LastDataReceived *time.Time   `json:"lastDataReceived,omitempty"`
	DailyCollections *int         `json:"dailyCollections,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
}
