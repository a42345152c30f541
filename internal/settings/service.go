package settings

import (
	"context"
	"encoding/json"
	"fmt"

	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

const waSettingsKey = "waSettings.v1"

type store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// Service loads and saves the WhatsApp settings document.
type Service interface {
	Load(ctx context.Context) (WASettings, error)
	Save(ctx context.Context, s WASettings) (WASettings, error)
}

type service struct {
	store store
	logg  *logger.Logger
}

func NewService(store store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("settings store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{store: store, logg: logg}, nil
}

// Load returns the stored settings over the defaults. An unreadable document
// is logged and the defaults are returned.
func (s *service) Load(ctx context.Context) (WASettings, error) {
	raw, ok, err := s.store.Get(ctx, waSettingsKey)
	if err != nil {
		return Defaults(), pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settings")
	}
	if !ok {
		return Defaults(), nil
	}
	var stored storedSettings
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stored wa settings unreadable, using defaults")
		return Defaults(), nil
	}
	return resolve(stored), nil
}

func (s *service) Save(ctx context.Context, in WASettings) (WASettings, error) {
	resolved := resolve(storedSettings{WASettings: in})
	payload, err := json.Marshal(resolved)
	if err != nil {
		return WASettings{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode settings")
	}
	if err := s.store.Put(ctx, waSettingsKey, string(payload)); err != nil {
		return WASettings{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save settings")
	}
	return resolved, nil
}
