package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfsync/shelfsync/internal/config"
	"github.com/shelfsync/shelfsync/internal/device"
	"github.com/shelfsync/shelfsync/internal/errors"
	"github.com/shelfsync/shelfsync/internal/logger"
)

// DeviceStoreHandle wraps the device store with shutdown capability.
type DeviceStoreHandle struct {
	*device.Store
}

// Shutdown implements do.Shutdownable.
func (h *DeviceStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideDeviceStore provides a read-only handle on the e-reader's
// library database.
func ProvideDeviceStore(i do.Injector) (*DeviceStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Device.DatabasePath == "" {
		return nil, errors.Setup("DEVICE_DB_PATH is required to read the e-reader database")
	}

	store, err := device.Open(cfg.Device.DatabasePath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Device database opened", "path", cfg.Device.DatabasePath)

	return &DeviceStoreHandle{Store: store}, nil
}
