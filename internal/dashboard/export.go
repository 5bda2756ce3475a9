package dashboard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"statusnet/internal/models"
)

// ErrNothingToExport is returned when an export has no rows
var ErrNothingToExport = errors.New("no logs to export")

// CSVHeader is the fixed header row of the log export
var CSVHeader = []string{"Timestamp", "Device", "IP", "Status", "Response Time (ms)", "Details"}

// CSVRow renders one log entry as export fields
func CSVRow(v models.LogView) []string {
	name := v.DeviceName
	if name == "" {
		name = fmt.Sprintf("Device %d", v.DeviceID)
	}
	ip := v.DeviceIP
	if ip == "" {
		ip = "N/A"
	}
	rt := ""
	if v.ResponseTime != nil {
		rt = strconv.Itoa(*v.ResponseTime)
	}
	return []string{
		v.Timestamp.UTC().Format(time.RFC3339),
		name,
		ip,
		string(v.Status),
		rt,
		v.Details,
	}
}

// WriteCSV writes the header and one row per entry, quoting every field
func WriteCSV(w io.Writer, views []models.LogView) error {
	if len(views) == 0 {
		return ErrNothingToExport
	}

	bw := bufio.NewWriter(w)
	writeRecord(bw, CSVHeader)
	for _, v := range views {
		writeRecord(bw, CSVRow(v))
	}
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// ExportFilename returns the download name of an export made at t
func ExportFilename(t time.Time) string {
	return "logs_" + t.Format("2006-01-02_15-04") + ".csv"
}
