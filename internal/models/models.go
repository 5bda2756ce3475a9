// Package models defines the data structures used throughout StatusNet.
// It contains the monitored devices, their status check logs, the dashboard
// settings and the small result types exchanged with the monitoring backend.
package models

import (
	"strings"
	"time"
)

// DeviceStatus is the health state reported for a device
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	StatusSlow    DeviceStatus = "slow"
	StatusUnknown DeviceStatus = "unknown"
)

// DeviceStatuses lists every status in display order
var DeviceStatuses = []DeviceStatus{StatusOnline, StatusOffline, StatusSlow, StatusUnknown}

// Valid reports whether s is one of the known statuses
func (s DeviceStatus) Valid() bool {
	for _, known := range DeviceStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DeviceType is the kind of network endpoint being monitored
type DeviceType string

const (
	TypeServer      DeviceType = "server"
	TypeRouter      DeviceType = "router"
	TypeSwitch      DeviceType = "switch"
	TypeAccessPoint DeviceType = "access-point"
	TypeFirewall    DeviceType = "firewall"
	TypeNAS         DeviceType = "nas"
	TypeCamera      DeviceType = "camera"
	TypeOther       DeviceType = "other"
)

// DeviceTypes lists every device type in display order
var DeviceTypes = []DeviceType{
	TypeServer, TypeRouter, TypeSwitch, TypeAccessPoint,
	TypeFirewall, TypeNAS, TypeCamera, TypeOther,
}

// Valid reports whether t is one of the known device types
func (t DeviceType) Valid() bool {
	for _, known := range DeviceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Device represents a monitored network endpoint
type Device struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	IP                string       `json:"ip"`
	Type              DeviceType   `json:"type"`
	Status            DeviceStatus `json:"status"`
	LastCheck         time.Time    `json:"lastCheck"`
	ResponseTime      *int         `json:"responseTime"` // milliseconds, nil when unreachable
	Location          string       `json:"location,omitempty"`
	Description       string       `json:"description,omitempty"`
	Uptime            string       `json:"uptime,omitempty"`
	Tags              []string     `json:"tags"`
	PollingInterval   int64        `json:"pollingInterval,omitempty"` // milliseconds
	Critical          bool         `json:"critical"`
	NotificationEmail string       `json:"notificationEmail,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// DeviceForm is the user-editable subset of a device as typed into the
// device form. Tags are kept as the raw comma separated string.
type DeviceForm struct {
	Name              string     `json:"name"`
	IP                string     `json:"ip"`
	Type              DeviceType `json:"type"`
	Location          string     `json:"location"`
	Description       string     `json:"description"`
	Tags              string     `json:"tags"`
	PollingInterval   int64      `json:"pollingInterval"`
	Critical          bool       `json:"critical"`
	NotificationEmail string     `json:"notificationEmail"`
}

// DefaultPollingInterval is the per-device check interval preselected in the form
const DefaultPollingInterval int64 = 60000

// NewDeviceForm returns an empty form with the defaults preselected
func NewDeviceForm() DeviceForm {
	return DeviceForm{
		Type:            TypeServer,
		PollingInterval: DefaultPollingInterval,
	}
}

// FormFromDevice fills a form from an existing device for editing
func FormFromDevice(d Device) DeviceForm {
	form := DeviceForm{
		Name:              d.Name,
		IP:                d.IP,
		Type:              d.Type,
		Location:          d.Location,
		Description:       d.Description,
		Tags:              strings.Join(d.Tags, ", "),
		PollingInterval:   d.PollingInterval,
		Critical:          d.Critical,
		NotificationEmail: d.NotificationEmail,
	}
	if form.Type == "" {
		form.Type = TypeServer
	}
	if form.PollingInterval == 0 {
		form.PollingInterval = DefaultPollingInterval
	}
	return form
}

// ToDevice converts the form into a device payload. Identity, status and
// timestamps are left for the backend to fill in.
func (f DeviceForm) ToDevice() Device {
	return Device{
		Name:              strings.TrimSpace(f.Name),
		IP:                strings.TrimSpace(f.IP),
		Type:              f.Type,
		Location:          strings.TrimSpace(f.Location),
		Description:       strings.TrimSpace(f.Description),
		Tags:              SplitTags(f.Tags),
		PollingInterval:   f.PollingInterval,
		Critical:          f.Critical,
		NotificationEmail: strings.TrimSpace(f.NotificationEmail),
	}
}

// SplitTags splits a comma separated tag string, dropping empty entries
func SplitTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// StatusLogEntry is a single point-in-time health check for a device.
// The device is referenced by id only; display fields are looked up when
// the entry is rendered.
type StatusLogEntry struct {
	ID           int64        `json:"id"`
	DeviceID     int64        `json:"device_id"`
	Status       DeviceStatus `json:"status"`
	ResponseTime *int         `json:"response_time"`
	PingTime     *int         `json:"ping_time"`
	PacketLoss   int          `json:"packet_loss"`
	Details      string       `json:"details"`
	Timestamp    time.Time    `json:"timestamp"`
	CreatedAt    time.Time    `json:"created_at"`
}

// LogView is a log entry joined with the current device fields for display
type LogView struct {
	StatusLogEntry
	DeviceName string `json:"device_name"`
	DeviceIP   string `json:"device_ip"`
}

// LogStats summarises a set of log entries
type LogStats struct {
	Total            int       `json:"total"`
	Online           int       `json:"online"`
	Offline          int       `json:"offline"`
	Slow             int       `json:"slow"`
	OnlinePercentage float64   `json:"onlinePercentage"`
	AvgResponse      int       `json:"avgResponse"`
	LastLog          time.Time `json:"lastLog"`
	FirstLog         time.Time `json:"firstLog"`
}

// DeviceCheck is the result of an on-demand status check of one device
type DeviceCheck struct {
	DeviceID     int64        `json:"deviceId"`
	Status       DeviceStatus `json:"status"`
	ResponseTime *int         `json:"responseTime"`
	Timestamp    time.Time    `json:"timestamp"`
}

// DeviceSummary holds device counts by status
type DeviceSummary struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Slow    int `json:"slow"`
}

// SystemStatus represents the overall backend status
type SystemStatus struct {
	Status     string        `json:"status"` // online, offline
	Message    string        `json:"message"`
	ServerTime time.Time     `json:"serverTime,omitempty"`
	Devices    DeviceSummary `json:"devices"`
}

// Online reports whether the backend declared itself online
func (s SystemStatus) Online() bool {
	return s.Status == "online"
}

// ConnectionResult is the outcome of a backend connectivity test
type ConnectionResult struct {
	Success      bool      `json:"success"`
	ResponseTime int64     `json:"responseTime"` // milliseconds
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
	ServerTime   time.Time `json:"serverTime,omitempty"`
}

// NotificationPreferences controls which events produce notifications
type NotificationPreferences struct {
	Email        bool `json:"email"`
	Push         bool `json:"push"`
	CriticalOnly bool `json:"criticalOnly"`
	Sound        bool `json:"sound"`
}

// Settings are the user preferences edited on the settings page
type Settings struct {
	APIURL        string                  `json:"apiUrl"`
	UseMock       bool                    `json:"useMock"`
	PollInterval  int64                   `json:"pollInterval"` // milliseconds
	AutoRefresh   bool                    `json:"autoRefresh"`
	Notifications NotificationPreferences `json:"notifications"`
	Theme         string                  `json:"theme"`
	Language      string                  `json:"language"`
	DataRetention int                     `json:"dataRetention"` // days, 0 keeps forever
}

// PollDuration returns the poll interval as a duration
func (s Settings) PollDuration() time.Duration {
	return time.Duration(s.PollInterval) * time.Millisecond
}

// Notification represents a user-facing notification
type Notification struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"` // info, success, warning, error
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// Incident is an ongoing or resolved period of degraded service
type Incident struct {
	ID         int64     `json:"id"`
	DeviceID   int64     `json:"device_id"`
	DeviceName string    `json:"device_name"`
	Type       string    `json:"type"` // offline, high_latency
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
	Resolved   bool      `json:"resolved"`
}

// DailyStats aggregates one day of checks
type DailyStats struct {
	Date            string  `json:"date"`
	Day             string  `json:"day"`
	Uptime          float64 `json:"uptime"`
	Incidents       int     `json:"incidents"`
	AvgResponseTime int     `json:"avgResponseTime"`
	Checks          int     `json:"checks"`
}

// TypeStats holds per device type counts
type TypeStats struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
}

// NetworkStats is the payload of the backend statistics endpoint
type NetworkStats struct {
	Overview struct {
		TotalDevices   int `json:"totalDevices"`
		OnlineDevices  int `json:"onlineDevices"`
		OfflineDevices int `json:"offlineDevices"`
		SlowDevices    int `json:"slowDevices"`
		TotalChecks    int `json:"totalChecks"`
	} `json:"overview"`
	Performance struct {
		Uptime24h       string `json:"uptime24h"`
		AvgResponseTime int    `json:"avgResponseTime"`
		MaxResponseTime int    `json:"maxResponseTime"`
		MinResponseTime int    `json:"minResponseTime"`
		Availability30d string `json:"availability30d"`
	} `json:"performance"`
	RecentIncidents []Incident           `json:"recentIncidents"`
	DailyStats      []DailyStats         `json:"dailyStats"`
	DeviceTypeStats map[string]TypeStats `json:"deviceTypeStats"`
	Alerts          struct {
		Critical int `json:"critical"`
		Warning  int `json:"warning"`
		Info     int `json:"info"`
	} `json:"alerts"`
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
