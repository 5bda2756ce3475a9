// Package reference holds the static lookup data of the dashboard: display
// names, colours and icons per device type and status, the allowed polling
// intervals, default settings, local storage keys and backend endpoints.
package reference

import (
	"strconv"
	"strings"
	"time"

	"statusnet/internal/models"
)

// TypeNames maps device types to their display names
var TypeNames = map[models.DeviceType]string{
	models.TypeServer:      "Server",
	models.TypeRouter:      "Router",
	models.TypeSwitch:      "Switch",
	models.TypeAccessPoint: "Access Point",
	models.TypeFirewall:    "Firewall",
	models.TypeNAS:         "NAS Storage",
	models.TypeCamera:      "Camera",
	models.TypeOther:       "Other",
}

// TypeIcons maps device types to icon names
var TypeIcons = map[models.DeviceType]string{
	models.TypeServer:      "Server",
	models.TypeRouter:      "Router",
	models.TypeSwitch:      "Cpu",
	models.TypeAccessPoint: "Wifi",
	models.TypeFirewall:    "Shield",
	models.TypeNAS:         "Database",
	models.TypeCamera:      "Camera",
	models.TypeOther:       "Server",
}

// StatusColor describes how a status is painted
type StatusColor struct {
	Background string `json:"bg"`
	Text       string `json:"text"`
	Border     string `json:"border"`
	Hex        string `json:"hex"`
}

// StatusColors maps statuses to their colours
var StatusColors = map[models.DeviceStatus]StatusColor{
	models.StatusOnline:  {Background: "bg-green-100", Text: "text-green-800", Border: "border-green-500", Hex: "#10b981"},
	models.StatusOffline: {Background: "bg-red-100", Text: "text-red-800", Border: "border-red-500", Hex: "#ef4444"},
	models.StatusSlow:    {Background: "bg-yellow-100", Text: "text-yellow-800", Border: "border-yellow-500", Hex: "#f59e0b"},
	models.StatusUnknown: {Background: "bg-gray-100", Text: "text-gray-800", Border: "border-gray-500", Hex: "#6b7280"},
}

// ColorFor returns the colour of a status, falling back to unknown
func ColorFor(status models.DeviceStatus) StatusColor {
	if c, ok := StatusColors[status]; ok {
		return c
	}
	return StatusColors[models.StatusUnknown]
}

// TypeName returns the display name of a device type
func TypeName(t models.DeviceType) string {
	if name, ok := TypeNames[t]; ok {
		return name
	}
	return TypeNames[models.TypeOther]
}

// Polling intervals in milliseconds
const (
	PollFast     int64 = 10000
	PollNormal   int64 = 30000
	PollSlow     int64 = 60000
	PollVerySlow int64 = 300000
	PollLazy     int64 = 600000
)

// PollingIntervals is the set of intervals a user may choose, in milliseconds
var PollingIntervals = []int64{PollFast, PollNormal, PollSlow, PollVerySlow, PollLazy}

// Option is a value/label pair offered in a select box
type Option struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
}

// PollingOptions returns the polling intervals with labels
func PollingOptions() []Option {
	opts := make([]Option, 0, len(PollingIntervals))
	for _, ms := range PollingIntervals {
		opts = append(opts, Option{Value: ms, Label: humanDuration(time.Duration(ms) * time.Millisecond)})
	}
	return opts
}

// RetentionOptions are the data retention choices in days, 0 keeps forever
var RetentionOptions = []Option{
	{Value: 7, Label: "7 days"},
	{Value: 30, Label: "30 days"},
	{Value: 90, Label: "90 days"},
	{Value: 365, Label: "1 year"},
	{Value: 0, Label: "Forever"},
}

// Themes and Languages accepted by the settings page
var (
	Themes    = []string{"light", "dark", "auto"}
	Languages = []string{"pt-BR", "en-US", "es-ES"}
)

// DefaultSettings returns the settings used before the user saves any
func DefaultSettings() models.Settings {
	return models.Settings{
		APIURL:       "http://localhost:3000/api",
		UseMock:      true,
		PollInterval: PollNormal,
		AutoRefresh:  true,
		Notifications: models.NotificationPreferences{
			Email:        true,
			Push:         false,
			CriticalOnly: true,
			Sound:        true,
		},
		Theme:         "light",
		Language:      "pt-BR",
		DataRetention: 30,
	}
}

// Local storage keys
const (
	KeySettings = "netstatus-settings"
	KeyDevices  = "netstatus-devices"
	KeyLogs     = "netstatus-logs"
	KeyTheme    = "netstatus-theme"
)

// User facing error messages
const (
	MsgNetworkError   = "Connection error with the server"
	MsgDeviceNotFound = "Device not found"
	MsgInvalidIP      = "Invalid IP address"
	MsgRequiredField  = "This field is required"
	MsgBackendOffline = "Backend offline. Using demonstration data."
	MsgDemoMode       = "Backend offline - demo mode"
)

// Backend endpoints. Stats, ping and check-all are expected but not
// guaranteed to be implemented by the backend.
const (
	EndpointDevices    = "/devices"
	EndpointDeviceByID = "/devices/:id"
	EndpointLogs       = "/logs"
	EndpointLogByID    = "/logs/:id"
	EndpointStatus     = "/status"
	EndpointStats      = "/stats"
	EndpointPingDevice = "/ping/:id"
	EndpointCheckAll   = "/check-all"
)

// Endpoint substitutes the :id placeholder of an endpoint template
func Endpoint(template string, id int64) string {
	return strings.Replace(template, ":id", strconv.FormatInt(id, 10), 1)
}

// Timeouts
const (
	TimeoutAPIRequest     = 8 * time.Second
	TimeoutConnectionTest = 3 * time.Second
	TimeoutToast          = 4 * time.Second
)

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return strconv.Itoa(int(d/time.Second)) + " seconds"
	case d == time.Minute:
		return "1 minute"
	default:
		return strconv.Itoa(int(d/time.Minute)) + " minutes"
	}
}
