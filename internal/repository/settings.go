package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/smsflow/smsflow/internal/model"
)

// SettingsRepository reads the provider_settings singleton. The dispatch
// engine never writes it; administrative tooling does.
type SettingsRepository interface {
	Get(ctx context.Context) (*model.ProviderSettings, error)
}

type SettingsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepositoryImpl {
	return &SettingsRepositoryImpl{db: db}
}

var _ SettingsRepository = (*SettingsRepositoryImpl)(nil)

func (r *SettingsRepositoryImpl) Get(ctx context.Context) (*model.ProviderSettings, error) {
	var s model.ProviderSettings
	err := r.db.GetContext(ctx, &s, `
		SELECT id,
		       onbuka_api_key, onbuka_api_secret, onbuka_app_id,
		       eims_account_1, eims_password_1, eims_servers_1,
		       eims_account_2, eims_password_2, eims_servers_2,
		       eims_account_3, eims_password_3, eims_servers_3,
		       smpp_host, smpp_port, smpp_system_id, smpp_password,
		       default_provider, updated_at
		  FROM provider_settings
		 LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
