package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"statusnet/internal/models"
	"statusnet/internal/notify"
	"statusnet/internal/store"
)

// DeviceAPI is the part of the backend client used by the device poller
type DeviceAPI interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	CreateDevice(ctx context.Context, d models.Device) (models.Device, error)
	UpdateDevice(ctx context.Context, id int64, d models.Device) (models.Device, error)
	DeleteDevice(ctx context.Context, id int64) error
	CheckDevice(ctx context.Context, id int64) (models.DeviceCheck, error)
	CheckAll(ctx context.Context) ([]models.DeviceCheck, error)
}

// DeviceCache persists the last known device list
type DeviceCache interface {
	SaveDevices(devices []models.Device) error
}

// Devices keeps the device inventory fresh in the shared store
type Devices struct {
	res      *Resource[[]models.Device]
	api      DeviceAPI
	store    *store.Devices
	cache    DeviceCache
	notifier notify.Notifier
	logger   zerolog.Logger
}

// NewDevices creates the device poller. cache may be nil.
func NewDevices(api DeviceAPI, st *store.Devices, cache DeviceCache, opts Options) *Devices {
	if opts.Name == "" {
		opts.Name = "devices"
	}
	if opts.ErrorMessage == "" {
		opts.ErrorMessage = "Failed to load devices"
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}

	d := &Devices{
		api:      api,
		store:    st,
		cache:    cache,
		notifier: opts.Notifier,
		logger:   log.With().Str("component", "devices").Logger(),
	}
	d.res = NewResource[[]models.Device](opts, api.ListDevices, d.publish)
	return d
}

// publish copies a device list into the shared store and the cache. It runs
// with the resource lock held.
func (d *Devices) publish(devices []models.Device) {
	d.store.Replace(devices)
	if d.cache == nil {
		return
	}
	if err := d.cache.SaveDevices(devices); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to cache devices")
	}
}

// Warm seeds the poller with a cached device list before the first load
func (d *Devices) Warm(devices []models.Device) {
	d.res.Seed(devices)
}

// Start begins polling
func (d *Devices) Start(ctx context.Context) { d.res.Start(ctx) }

// Stop ends polling
func (d *Devices) Stop() { d.res.Stop() }

// Load fetches the device list, silently or not
func (d *Devices) Load(ctx context.Context, silent bool) error {
	return d.res.Load(ctx, silent)
}

// Status returns the loading state
func (d *Devices) Status() Status { return d.res.Status() }

// List returns every device
func (d *Devices) List() []models.Device { return d.store.List() }

// Get returns one device
func (d *Devices) Get(id int64) (models.Device, bool) { return d.store.Get(id) }

// ByType returns the devices of type t
func (d *Devices) ByType(t models.DeviceType) []models.Device {
	return d.store.Filter(func(dev models.Device) bool { return dev.Type == t })
}

// ByStatus returns the devices in status s
func (d *Devices) ByStatus(s models.DeviceStatus) []models.Device {
	return d.store.Filter(func(dev models.Device) bool { return dev.Status == s })
}

// Summary returns the device counts by status
func (d *Devices) Summary() models.DeviceSummary { return d.store.Summary() }

// TypeCounts returns the number of devices per type
func (d *Devices) TypeCounts() map[string]int { return d.store.CountByType() }

// Add creates a device on the backend and appends it locally
func (d *Devices) Add(ctx context.Context, dev models.Device) (models.Device, error) {
	created, err := d.api.CreateDevice(ctx, dev)
	if err != nil {
		d.logger.Error().Err(err).Str("name", dev.Name).Msg("Failed to add device")
		return models.Device{}, err
	}

	d.res.Mutate(func(list []models.Device) []models.Device {
		return append(clone(list), created)
	})
	d.logger.Info().Int64("id", created.ID).Str("name", created.Name).Msg("Device added")
	return created, nil
}

// Update replaces a device on the backend and locally
func (d *Devices) Update(ctx context.Context, id int64, dev models.Device) (models.Device, error) {
	updated, err := d.api.UpdateDevice(ctx, id, dev)
	if err != nil {
		d.logger.Error().Err(err).Int64("id", id).Msg("Failed to update device")
		return models.Device{}, err
	}
	if updated.ID == 0 {
		updated.ID = id
	}

	d.res.Mutate(func(list []models.Device) []models.Device {
		out := clone(list)
		for i := range out {
			if out[i].ID == id {
				out[i] = updated
			}
		}
		return out
	})
	return updated, nil
}

// Delete removes a device on the backend and locally
func (d *Devices) Delete(ctx context.Context, id int64) error {
	if err := d.api.DeleteDevice(ctx, id); err != nil {
		d.logger.Error().Err(err).Int64("id", id).Msg("Failed to delete device")
		return err
	}

	d.res.Mutate(func(list []models.Device) []models.Device {
		out := make([]models.Device, 0, len(list))
		for _, dev := range list {
			if dev.ID != id {
				out = append(out, dev)
			}
		}
		return out
	})
	d.logger.Info().Int64("id", id).Msg("Device deleted")
	return nil
}

// RefreshDevice runs an immediate check of one device and records the result
func (d *Devices) RefreshDevice(ctx context.Context, id int64) (models.DeviceCheck, error) {
	check, err := d.api.CheckDevice(ctx, id)
	if err != nil {
		d.notifier.Error("Failed to refresh device")
		d.logger.Error().Err(err).Int64("id", id).Msg("Failed to refresh device")
		return models.DeviceCheck{}, err
	}

	now := time.Now()
	d.res.Mutate(func(list []models.Device) []models.Device {
		out := clone(list)
		for i := range out {
			if out[i].ID == id {
				applyCheck(&out[i], check)
				out[i].UpdatedAt = now
			}
		}
		return out
	})

	name := fmt.Sprintf("Device %d", id)
	if dev, ok := d.store.Get(id); ok {
		name = dev.Name
	}
	d.notifier.Success(fmt.Sprintf("Status of %s updated", name))
	return check, nil
}

// RefreshAll runs an immediate check of every device
func (d *Devices) RefreshAll(ctx context.Context) ([]models.DeviceCheck, error) {
	checks, err := d.api.CheckAll(ctx)
	if err != nil {
		d.notifier.Error("Failed to refresh devices")
		d.logger.Error().Err(err).Msg("Failed to refresh devices")
		return nil, err
	}

	byID := make(map[int64]models.DeviceCheck, len(checks))
	for _, c := range checks {
		byID[c.DeviceID] = c
	}
	d.res.Mutate(func(list []models.Device) []models.Device {
		out := clone(list)
		for i := range out {
			if c, ok := byID[out[i].ID]; ok {
				applyCheck(&out[i], c)
			}
		}
		return out
	})

	d.notifier.Success("All devices refreshed")
	return checks, nil
}

func applyCheck(dev *models.Device, c models.DeviceCheck) {
	dev.Status = c.Status
	dev.LastCheck = c.Timestamp
	dev.ResponseTime = c.ResponseTime
}

func clone[T any](list []T) []T {
	return append(make([]T, 0, len(list)+1), list...)
}
