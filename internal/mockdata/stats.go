package mockdata

import (
	"fmt"
	"time"

	"statusnet/internal/models"
)

func (g *Generator) stats(ds Dataset) models.NetworkStats {
	var st models.NetworkStats
	now := ds.GeneratedAt

	st.Overview.TotalDevices = len(ds.Devices)
	st.Overview.TotalChecks = len(ds.Logs)
	st.DeviceTypeStats = make(map[string]models.TypeStats)

	for _, d := range ds.Devices {
		ts := st.DeviceTypeStats[string(d.Type)]
		ts.Total++

		switch d.Status {
		case models.StatusOnline:
			st.Overview.OnlineDevices++
			ts.Online++
		case models.StatusOffline:
			st.Overview.OfflineDevices++
			ts.Offline++
			st.Alerts.Critical++
		case models.StatusSlow:
			st.Overview.SlowDevices++
			st.Alerts.Warning++
		default:
			st.Alerts.Info++
		}
		st.DeviceTypeStats[string(d.Type)] = ts
	}

	var online, online24h, total24h, sum, samples int
	minRT, maxRT := 0, 0
	cutoff := now.Add(-24 * time.Hour)
	for _, l := range ds.Logs {
		if l.Status == models.StatusOnline {
			online++
		}
		if !l.Timestamp.Before(cutoff) {
			total24h++
			if l.Status == models.StatusOnline {
				online24h++
			}
		}
		if l.ResponseTime == nil {
			continue
		}
		rt := *l.ResponseTime
		if samples == 0 || rt < minRT {
			minRT = rt
		}
		if rt > maxRT {
			maxRT = rt
		}
		sum += rt
		samples++
	}

	st.Performance.Uptime24h = percent(online24h, total24h)
	st.Performance.Availability30d = percent(online, len(ds.Logs))
	st.Performance.MinResponseTime = minRT
	st.Performance.MaxResponseTime = maxRT
	if samples > 0 {
		st.Performance.AvgResponseTime = sum / samples
	}

	st.RecentIncidents = incidents(ds.Devices, now)
	st.DailyStats = g.dailyStats(now)
	return st
}

func incidents(devices []models.Device, now time.Time) []models.Incident {
	out := []models.Incident{}
	for _, d := range devices {
		var kind string
		switch d.Status {
		case models.StatusOffline:
			kind = "offline"
		case models.StatusSlow:
			kind = "high_latency"
		default:
			continue
		}
		out = append(out, models.Incident{
			ID:         int64(len(out) + 1),
			DeviceID:   d.ID,
			DeviceName: d.Name,
			Type:       kind,
			StartedAt:  d.LastCheck,
			Duration:   humanizeDuration(now.Sub(d.LastCheck)),
		})
	}
	return out
}

func (g *Generator) dailyStats(now time.Time) []models.DailyStats {
	out := make([]models.DailyStats, 0, 7)
	for i := 0; i < 7; i++ {
		date := now.AddDate(0, 0, -(6 - i))
		out = append(out, models.DailyStats{
			Date:            date.Format("2006-01-02"),
			Day:             date.Format("Mon"),
			Uptime:          95 + g.rnd.Float64()*4,
			Incidents:       g.rnd.Intn(4),
			AvgResponseTime: g.rnd.Intn(40) + 10,
			Checks:          1000 + g.rnd.Intn(500),
		})
	}
	return out
}

func percent(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	}
}
