package model

import "time"

// ProviderSettings is the deployment singleton holding carrier credentials
// for every supported carrier plus the configured default. The dispatch
// engine only reads it; administrative collaborators mutate it.
type ProviderSettings struct {
	ID              int64     `db:"id" json:"id"`
	OnbukaAPIKey    string    `db:"onbuka_api_key" json:"onbuka_api_key"`
	OnbukaAPISecret string    `db:"onbuka_api_secret" json:"onbuka_api_secret"`
	OnbukaAppID     string    `db:"onbuka_app_id" json:"onbuka_app_id"`
	EIMSAccount1    string    `db:"eims_account_1" json:"eims_account_1"`
	EIMSPassword1   string    `db:"eims_password_1" json:"eims_password_1"`
	EIMSServers1    string    `db:"eims_servers_1" json:"eims_servers_1"`
	EIMSAccount2    string    `db:"eims_account_2" json:"eims_account_2"`
	EIMSPassword2   string    `db:"eims_password_2" json:"eims_password_2"`
	EIMSServers2    string    `db:"eims_servers_2" json:"eims_servers_2"`
	EIMSAccount3    string    `db:"eims_account_3" json:"eims_account_3"`
	EIMSPassword3   string    `db:"eims_password_3" json:"eims_password_3"`
	EIMSServers3    string    `db:"eims_servers_3" json:"eims_servers_3"`
	SMPPHost        string    `db:"smpp_host" json:"smpp_host"`
	SMPPPort        int       `db:"smpp_port" json:"smpp_port"`
	SMPPSystemID    string    `db:"smpp_system_id" json:"smpp_system_id"`
	SMPPPassword    string    `db:"smpp_password" json:"smpp_password"`
	DefaultProvider Provider  `db:"default_provider" json:"default_provider"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// EIMSAccount returns the credentials triple for account n (1..3).
func (s ProviderSettings) EIMSAccount(n int) (account, password, servers string) {
	switch n {
	case 1:
		return s.EIMSAccount1, s.EIMSPassword1, s.EIMSServers1
	case 2:
		return s.EIMSAccount2, s.EIMSPassword2, s.EIMSServers2
	case 3:
		return s.EIMSAccount3, s.EIMSPassword3, s.EIMSServers3
	}
	return "", "", ""
}

// Configured reports whether credentials for the given carrier are present.
func (s ProviderSettings) Configured(p Provider) bool {
	switch p {
	case ProviderOnbuka:
		return s.OnbukaAPIKey != "" && s.OnbukaAPISecret != "" && s.OnbukaAppID != ""
	case ProviderEIMS1, ProviderEIMS2, ProviderEIMS3:
		n := int(p[len(p)-1] - '0')
		a, pw, srv := s.EIMSAccount(n)
		return a != "" && pw != "" && srv != ""
	case ProviderSMPP:
		return s.SMPPHost != "" && s.SMPPSystemID != ""
	}
	return false
}
