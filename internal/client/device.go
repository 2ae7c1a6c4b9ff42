package client

import (
	"context"
	"errors"
	"fmt"

	"spendlog/internal/device"

	"github.com/google/uuid"
)

// DeviceKey is the KV key holding the device identifier.
const DeviceKey = "deviceId"

// DeviceIdentity hands out the identifier this client presents to the API.
// It is generated once and never registered anywhere.
type DeviceIdentity struct {
	kv    KV
	newID func() string
}

func NewDeviceIdentity(kv KV) *DeviceIdentity {
	return &DeviceIdentity{kv: kv, newID: uuid.NewString}
}

// ID returns the stored identifier, creating and persisting one on first use.
func (d *DeviceIdentity) ID(ctx context.Context) (string, error) {
	raw, err := d.kv.Get(ctx, DeviceKey)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return "", fmt.Errorf("load device id: %w", err)
	}
	if id := device.Normalize(raw); id != "" {
		return id, nil
	}

	id := d.newID()
	if err := d.kv.Set(ctx, DeviceKey, id); err != nil {
		return "", fmt.Errorf("store device id: %w", err)
	}
	return id, nil
}
