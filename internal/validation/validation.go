// Package validation implements the client-side checks applied to device,
// log and settings input before anything is sent to the backend.
//
// Every form is described by a zog schema. Zog runs every field check, never
// stopping at the first failure, and the first issue of each failing field
// becomes its message.
package validation

import (
	"regexp"
	"strings"

	z "github.com/Oudwins/zog"

	"statusnet/internal/models"
	"statusnet/internal/reference"
)

// Length bounds of free text fields
const (
	MinNameLength        = 2
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MaxLocationLength    = 200
	MaxTagLength         = 50
)

// Field messages
const (
	MsgName            = "Name must be between 2 and 100 characters"
	MsgIP              = "Invalid IP address (e.g. 192.168.1.1)"
	MsgType            = "Device type is required"
	MsgLocation        = "Location too long (max. 200 characters)"
	MsgDescription     = "Description too long (max. 500 characters)"
	MsgEmail           = "Invalid email"
	MsgTags            = "Invalid tags. Use only letters, numbers, hyphens and underscores"
	MsgPollingInterval = "Invalid check interval"
	MsgDeviceID        = "Device ID is required"
	MsgStatus          = "Invalid status"
	MsgResponseTime    = "Invalid response time"
	MsgURL             = "Invalid URL"
	MsgURLScheme       = "URL must use HTTP or HTTPS"
	MsgTheme           = "Invalid theme"
	MsgLanguage        = "Invalid language"
	MsgDataRetention   = "Invalid data retention"
)

const (
	octet = `(25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)`
	tag   = `[a-zA-Z0-9_-]{0,50}`
)

var (
	// four canonical octets, so "01" and "256" are rejected
	ipPattern      = regexp.MustCompile(`^` + octet + `(\.` + octet + `){3}$`)
	tagListPattern = regexp.MustCompile(`^\s*` + tag + `\s*(,\s*` + tag + `\s*)*$`)
	httpScheme     = regexp.MustCompile(`^(?i)https?://`)
	htmlTag        = regexp.MustCompile(`<[^>]*>`)
	unsafeChars    = regexp.MustCompile("[<>\"'`]")
)

var (
	nameSchema = z.String().Trim().
			Required(z.Message(MsgName)).
			Min(MinNameLength, z.Message(MsgName)).
			Max(MaxNameLength, z.Message(MsgName))
	ipSchema          = z.String().Required(z.Message(MsgIP)).Match(ipPattern, z.Message(MsgIP))
	locationSchema    = z.String().Trim().Max(MaxLocationLength, z.Message(MsgLocation))
	descriptionSchema = z.String().Trim().Max(MaxDescriptionLength, z.Message(MsgDescription))
	emailSchema       = z.String().Trim().Email(z.Message(MsgEmail))
	tagsSchema        = z.String().Match(tagListPattern, z.Message(MsgTags))
	intervalSchema    = z.Int64().OneOf(reference.PollingIntervals, z.Message(MsgPollingInterval))
)

var deviceSchema = z.Struct(z.Shape{
	"Name":              nameSchema,
	"IP":                ipSchema,
	"Type":              z.String().Required(z.Message(MsgType)),
	"Location":          locationSchema,
	"Description":       descriptionSchema,
	"NotificationEmail": emailSchema,
	"Tags":              tagsSchema,
	"PollingInterval":   intervalSchema,
})

var logSchema = z.Struct(z.Shape{
	"DeviceID":     z.Int64().Required(z.Message(MsgDeviceID)).GT(0, z.Message(MsgDeviceID)),
	"Status":       z.String().Required(z.Message(MsgStatus)).OneOf(statusNames(), z.Message(MsgStatus)),
	"ResponseTime": z.Ptr(z.Int().GTE(0, z.Message(MsgResponseTime))),
})

var settingsSchema = z.Struct(z.Shape{
	"APIURL": z.String().
		Required(z.Message(MsgURL)).
		URL(z.Message(MsgURL)).
		Match(httpScheme, z.Message(MsgURLScheme)),
	"PollInterval":  z.Int64().Required(z.Message(MsgPollingInterval)).OneOf(reference.PollingIntervals, z.Message(MsgPollingInterval)),
	"Theme":         z.String().Required(z.Message(MsgTheme)).OneOf(reference.Themes, z.Message(MsgTheme)),
	"Language":      z.String().Required(z.Message(MsgLanguage)).OneOf(reference.Languages, z.Message(MsgLanguage)),
	"DataRetention": z.Int().GTE(0, z.Message(MsgDataRetention)),
})

// Schema inputs. Typed strings of the models are flattened to plain strings.
type deviceInput struct {
	Name              string
	IP                string
	Type              string
	Location          string
	Description       string
	NotificationEmail string
	Tags              string
	PollingInterval   int64
}

type logInput struct {
	DeviceID     int64
	Status       string
	ResponseTime *int
}

type settingsInput struct {
	APIURL        string
	PollInterval  int64
	Theme         string
	Language      string
	DataRetention int
}

// fieldKeys maps a normalised schema path to the key reported to callers
var fieldKeys = map[string]string{
	"name":              "name",
	"ip":                "ip",
	"type":              "type",
	"location":          "location",
	"description":       "description",
	"notificationemail": "notificationEmail",
	"tags":              "tags",
	"pollinginterval":   "pollingInterval",
	"deviceid":          "device_id",
	"status":            "status",
	"responsetime":      "response_time",
	"apiurl":            "apiUrl",
	"pollinterval":      "pollInterval",
	"theme":             "theme",
	"language":          "language",
	"dataretention":     "dataRetention",
}

// Result is the outcome of a composite validation
type Result struct {
	IsValid bool              `json:"isValid"`
	Errors  map[string]string `json:"errors"`
}

func newResult(errors map[string]string) Result {
	return Result{IsValid: len(errors) == 0, Errors: errors}
}

// resultFrom keeps the first issue of every field. Zog's aggregate keys
// ($first, $root) have no field and are skipped.
func resultFrom(issues z.ZogIssueMap) Result {
	errors := make(map[string]string)
	for path, list := range issues {
		field, ok := fieldKeys[strings.ToLower(strings.ReplaceAll(path, "_", ""))]
		if !ok || len(list) == 0 {
			continue
		}
		errors[field] = list[0].Message
	}
	return newResult(errors)
}

func statusNames() []string {
	names := make([]string, len(models.DeviceStatuses))
	for i, s := range models.DeviceStatuses {
		names[i] = string(s)
	}
	return names
}

// IsValidIP reports whether ip is four dot separated decimal octets in
// 0-255. Octets must be written canonically, so "01" is rejected.
func IsValidIP(ip string) bool {
	return len(ipSchema.Validate(&ip)) == 0
}

// IsValidDeviceName checks the trimmed name is 2 to 100 characters long
func IsValidDeviceName(name string) bool {
	return len(nameSchema.Validate(&name)) == 0
}

// IsValidDescription accepts an empty description or one of at most 500 characters
func IsValidDescription(description string) bool {
	return len(descriptionSchema.Validate(&description)) == 0
}

// IsValidLocation accepts an empty location or one of at most 200 characters
func IsValidLocation(location string) bool {
	return len(locationSchema.Validate(&location)) == 0
}

// IsValidEmail accepts an empty address or something shaped like user@host.tld
func IsValidEmail(email string) bool {
	return len(emailSchema.Validate(&email)) == 0
}

// IsValidTags checks a comma separated tag list. Empty entries are ignored.
func IsValidTags(tags string) bool {
	return len(tagsSchema.Validate(&tags)) == 0
}

// IsValidPollingInterval reports whether ms is one of the allowed intervals
func IsValidPollingInterval(ms int64) bool {
	return ms != 0 && len(intervalSchema.Validate(&ms)) == 0
}

// ValidateDevice checks every field of a device form
func ValidateDevice(form models.DeviceForm) Result {
	in := deviceInput{
		Name:              form.Name,
		IP:                form.IP,
		Type:              string(form.Type),
		Location:          form.Location,
		Description:       form.Description,
		NotificationEmail: form.NotificationEmail,
		Tags:              form.Tags,
		PollingInterval:   form.PollingInterval,
	}
	return resultFrom(deviceSchema.Validate(&in))
}

// ValidateLog checks a log entry submitted by the user
func ValidateLog(entry models.StatusLogEntry) Result {
	in := logInput{
		DeviceID:     entry.DeviceID,
		Status:       string(entry.Status),
		ResponseTime: entry.ResponseTime,
	}
	return resultFrom(logSchema.Validate(&in))
}

// ValidateSettings checks the settings page form
func ValidateSettings(s models.Settings) Result {
	in := settingsInput{
		APIURL:        s.APIURL,
		PollInterval:  s.PollInterval,
		Theme:         s.Theme,
		Language:      s.Language,
		DataRetention: s.DataRetention,
	}
	return resultFrom(settingsSchema.Validate(&in))
}

// SanitizeInput trims s and strips HTML tags and quote or angle characters
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	s = htmlTag.ReplaceAllString(s, "")
	return unsafeChars.ReplaceAllString(s, "")
}

// SanitizeDevice sanitizes every free text field of a device form
func SanitizeDevice(form models.DeviceForm) models.DeviceForm {
	form.Name = SanitizeInput(form.Name)
	form.IP = SanitizeInput(form.IP)
	form.Location = SanitizeInput(form.Location)
	form.Description = SanitizeInput(form.Description)
	form.Tags = SanitizeInput(form.Tags)
	form.NotificationEmail = SanitizeInput(form.NotificationEmail)
	return form
}
