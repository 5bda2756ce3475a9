package mockdata

import (
	"time"

	"statusnet/internal/models"
)

const day = 24 * time.Hour

// DefaultFixtures returns the built-in demonstration roster. It covers every
// device type and every status. The switch and the camera open their
// history with an outage and the firewall goes through a slow window.
func DefaultFixtures() []Fixture {
	random := Pattern{Kind: PatternRandom, FailureRate: 0.05}
	outage := Pattern{Kind: PatternOutage, OfflineUntil: 20, SlowUntil: 30}

	return []Fixture{
		{
			Device: models.Device{
				ID: 1, Name: "Main Server", IP: "192.168.1.100",
				Type: models.TypeServer, Status: models.StatusOnline,
				ResponseTime: models.IntPtr(24),
				Location:     "Server Room - Rack A",
				Description:  "Dell PowerEdge R740 running virtualization",
				Uptime:       "99.8%",
				Tags:         []string{"critical", "virtualization"},
				Critical:     true,
			},
			CreatedAgo: 90 * day,
			Pattern:    random,
		},
		{
			Device: models.Device{
				ID: 2, Name: "Corporate Router", IP: "192.168.1.1",
				Type: models.TypeRouter, Status: models.StatusOnline,
				ResponseTime: models.IntPtr(12),
				Location:     "Network Closet - Floor 1",
				Description:  "Cisco ISR 4321 with redundancy",
				Uptime:       "99.9%",
				Tags:         []string{"gateway", "redundant"},
			},
			LastCheckAgo: 2 * time.Minute,
			CreatedAgo:   120 * day,
			UpdatedAgo:   day,
			Pattern:      random,
		},
		{
			Device: models.Device{
				ID: 3, Name: "Floor 2 Switch", IP: "192.168.1.20",
				Type: models.TypeSwitch, Status: models.StatusOffline,
				Location:    "IT Room - Floor 2",
				Description: "Cisco Catalyst 2960X 24-port switch",
				Uptime:      "95.2%",
				Tags:        []string{"switch", "floor-2"},
			},
			LastCheckAgo: 3 * time.Hour,
			CreatedAgo:   60 * day,
			UpdatedAgo:   3 * time.Hour,
			Pattern:      outage,
		},
		{
			Device: models.Device{
				ID: 4, Name: "WiFi Access Point", IP: "192.168.1.50",
				Type: models.TypeAccessPoint, Status: models.StatusOnline,
				ResponseTime: models.IntPtr(45),
				Location:     "Reception - Ground Floor",
				Description:  "Ubiquiti UniFi AP AC Pro",
				Uptime:       "98.7%",
				Tags:         []string{"wifi", "public"},
			},
			LastCheckAgo: 5 * time.Minute,
			CreatedAgo:   45 * day,
			UpdatedAgo:   2 * day,
			Pattern:      random,
		},
		{
			Device: models.Device{
				ID: 5, Name: "Perimeter Firewall", IP: "192.168.1.254",
				Type: models.TypeFirewall, Status: models.StatusSlow,
				ResponseTime: models.IntPtr(120),
				Location:     "DMZ - Security Rack",
				Description:  "FortiGate 100F with active IPS/IDS",
				Uptime:       "99.5%",
				Tags:         []string{"security", "critical"},
				Critical:     true,
			},
			LastCheckAgo: time.Minute,
			CreatedAgo:   180 * day,
			Pattern:      Pattern{Kind: PatternSlowWindow, From: 40, To: 60},
		},
		{
			Device: models.Device{
				ID: 6, Name: "NAS Storage", IP: "192.168.1.30",
				Type: models.TypeNAS, Status: models.StatusOnline,
				ResponseTime: models.IntPtr(28),
				Location:     "Server Room - Rack B",
				Description:  "Synology RS2416+ with 48TB RAID6",
				Uptime:       "99.9%",
				Tags:         []string{"storage", "backup"},
			},
			LastCheckAgo: 10 * time.Minute,
			CreatedAgo:   200 * day,
			UpdatedAgo:   5 * day,
			Pattern:      random,
		},
		{
			Device: models.Device{
				ID: 7, Name: "Outdoor PTZ Camera", IP: "192.168.1.101",
				Type: models.TypeCamera, Status: models.StatusOffline,
				Location:    "Parking Lot - Main Entrance",
				Description: "Hikvision DS-2DE4225IW-DE with night vision",
				Uptime:      "88.3%",
				Tags:        []string{"security", "external"},
			},
			LastCheckAgo: 8 * time.Hour,
			CreatedAgo:   30 * day,
			UpdatedAgo:   8 * time.Hour,
			Pattern:      outage,
		},
		{
			Device: models.Device{
				ID: 8, Name: "Backup Server", IP: "192.168.1.102",
				Type: models.TypeServer, Status: models.StatusOnline,
				ResponseTime: models.IntPtr(32),
				Location:     "Server Room - Rack C",
				Description:  "Backup server running Veeam",
				Uptime:       "99.6%",
				Tags:         []string{"backup", "secondary"},
			},
			CreatedAgo: 150 * day,
			Pattern:    random,
		},
		{
			Device: models.Device{
				ID: 9, Name: "Office Printer", IP: "192.168.1.150",
				Type: models.TypeOther, Status: models.StatusUnknown,
				Location:    "Office - Floor 1",
				Description: "Shared network printer",
				Tags:        []string{"printer"},
			},
			LastCheckAgo: day,
			CreatedAgo:   20 * day,
			UpdatedAgo:   day,
			Pattern:      random,
		},
	}
}
