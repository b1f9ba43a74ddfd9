package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/camarasaas/portal/pkg/tenant"
)

// SettingsKey is the key, relative to the namespace, holding tenant settings.
const SettingsKey = "settings"

type settingsSlot struct{}

// SettingsTask switches the cache namespace with the active tenant and
// materializes the tenant's settings from the store.
type SettingsTask struct {
	store Store
}

func NewSettingsTask(store Store) *SettingsTask {
	return &SettingsTask{store: store}
}

// settingsEntry is the cached settings document. Version is the UpdatedAt of
// the registry record it was built from.
type settingsEntry struct {
	Version  time.Time       `json:"version"`
	Settings tenant.Settings `json:"settings"`
}

// Activate loads the settings cached for t, caching t.Settings on a miss,
// and moves the namespace to the tenant prefix. An entry older than t is
// replaced, so a stale record never shadows a newer one.
func (st *SettingsTask) Activate(ctx context.Context, s *tenant.Scope, t *tenant.Tenant) error {
	prefix := TenantPrefix(t.ID)
	key := prefix + SettingsKey
	fresh := func(context.Context) (settingsEntry, error) {
		return settingsEntry{Version: t.UpdatedAt, Settings: t.Settings.Clone()}, nil
	}

	entry, err := remember(ctx, st.store, key, fresh)
	if err != nil {
		return err
	}
	if entry.Version.Before(t.UpdatedAt) {
		entry, _ = fresh(ctx)
		raw, err := json.Marshal(entry)
		if err != nil {
			return errors.Join(ErrEncode, err)
		}
		if err := st.store.Set(ctx, key, raw, 0); err != nil {
			return err
		}
	}

	settings := entry.Settings
	if settings == nil {
		settings = tenant.Settings{}
	}

	s.Store(namespaceSlot{}, prefix)
	s.Store(settingsSlot{}, settings)
	return nil
}

// Deactivate restores the landlord namespace. Cached entries are kept.
func (st *SettingsTask) Deactivate(_ context.Context, s *tenant.Scope) error {
	s.Clear(settingsSlot{})
	s.Clear(namespaceSlot{})
	return nil
}

// Settings returns a copy of the settings materialized for the active tenant,
// or nil outside of a tenant.
func (st *SettingsTask) Settings(ctx context.Context) tenant.Settings {
	if v, ok := tenant.Load[tenant.Settings](ctx, settingsSlot{}); ok {
		return v.Clone()
	}
	return nil
}

// Invalidate drops t's cached settings so the next activation reloads them.
func (st *SettingsTask) Invalidate(ctx context.Context, t *tenant.Tenant) error {
	return st.store.Delete(ctx, TenantPrefix(t.ID)+SettingsKey)
}
