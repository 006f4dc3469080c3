package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smsflow/smsflow/internal/carrier"
	"github.com/smsflow/smsflow/internal/config"
	"github.com/smsflow/smsflow/internal/gateway"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/stretchr/testify/require"
)

// fakeSettingsRepo serves a fixed settings singleton.
type fakeSettingsRepo struct {
	settings *model.ProviderSettings
}

func (f *fakeSettingsRepo) Get(ctx context.Context) (*model.ProviderSettings, error) {
	return f.settings, nil
}

// fakeLogsRepo records every inserted ledger row.
type fakeLogsRepo struct {
	inserted []model.SmsLog
}

func (f *fakeLogsRepo) InsertBatch(ctx context.Context, logs []model.SmsLog) error {
	f.inserted = append(f.inserted, logs...)
	return nil
}

func (f *fakeLogsRepo) GetByMessageID(ctx context.Context, messageID string) (*model.SmsLog, error) {
	return nil, nil
}

func (f *fakeLogsRepo) MarkDelivery(ctx context.Context, messageID string, status model.SmsStatus, errMsg string) (bool, error) {
	return false, nil
}

func onbukaOKServer(t *testing.T, ids ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arr := make([]map[string]string, len(ids))
		for i, id := range ids {
			arr[i] = map[string]string{"msgId": id}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "0", "array": arr})
	}))
}

func newGateway(baseURL string, settings *model.ProviderSettings, logs *fakeLogsRepo) *gateway.Gateway {
	carriers := carrier.NewRegistry(config.CarriersConfig{OnbukaBaseURL: baseURL})
	return gateway.New(carriers, &fakeSettingsRepo{settings: settings}, logs)
}

func configuredSettings() *model.ProviderSettings {
	return &model.ProviderSettings{
		OnbukaAPIKey:    "k",
		OnbukaAPISecret: "s",
		OnbukaAppID:     "a",
		DefaultProvider: model.ProviderOnbuka,
	}
}

func TestSendSuccessLogsPerDestination(t *testing.T) {
	srv := onbukaOKServer(t, "m1", "m2")
	defer srv.Close()

	logs := &fakeLogsRepo{}
	gw := newGateway(srv.URL, configuredSettings(), logs)

	res, err := gw.Send(context.Background(), gateway.SendRequest{
		AccountID:  7,
		To:         []string{"+15550001", "+15550002"},
		Message:    "hello",
		CampaignID: "camp-1",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 2, res.SentCount)
	require.Equal(t, []string{"m1", "m2"}, res.MessageIDs)

	require.Len(t, logs.inserted, 2)
	for i, l := range logs.inserted {
		require.Equal(t, int64(7), l.AccountID)
		require.Equal(t, model.SmsStatusSent, l.Status)
		require.Equal(t, model.ProviderOnbuka, l.Provider)
		require.NotNil(t, l.CampaignID)
		require.Equal(t, "camp-1", *l.CampaignID)
		require.NotNil(t, l.MessageID)
		require.Equal(t, res.MessageIDs[i], *l.MessageID)
		require.NotEmpty(t, l.ID)
	}
}

func TestSendAdapterFailureLogsEveryDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "1", "reason": "invalid sender"})
	}))
	defer srv.Close()

	logs := &fakeLogsRepo{}
	gw := newGateway(srv.URL, configuredSettings(), logs)

	res, err := gw.Send(context.Background(), gateway.SendRequest{
		AccountID: 7,
		To:        []string{"+15550001", "+15550002", "+15550003"},
		Message:   "hello",
	})
	// an upstream rejection is an outcome, not an error
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Zero(t, res.SentCount)
	require.Equal(t, "Onbuka error 1: invalid sender", res.Err)
	require.Len(t, res.MessageIDs, 3)

	require.Len(t, logs.inserted, 3)
	for _, l := range logs.inserted {
		require.Equal(t, model.SmsStatusFailed, l.Status)
		require.Nil(t, l.MessageID)
		require.NotNil(t, l.ErrorMessage)
		require.Equal(t, "Onbuka error 1: invalid sender", *l.ErrorMessage)
	}
}

func TestSendShortMessageIDListStillAligned(t *testing.T) {
	// upstream accepted the batch but returned ids for only one destination
	srv := onbukaOKServer(t, "m1")
	defer srv.Close()

	logs := &fakeLogsRepo{}
	gw := newGateway(srv.URL, configuredSettings(), logs)

	res, err := gw.Send(context.Background(), gateway.SendRequest{
		AccountID: 7,
		To:        []string{"+15550001", "+15550002"},
		Message:   "hello",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []string{"m1", ""}, res.MessageIDs)

	require.Len(t, logs.inserted, 2)
	require.NotNil(t, logs.inserted[0].MessageID)
	require.Nil(t, logs.inserted[1].MessageID)
	require.Equal(t, model.SmsStatusSent, logs.inserted[1].Status)
}

func TestSendConfigErrorsWriteNoLogs(t *testing.T) {
	logs := &fakeLogsRepo{}

	t.Run("no destinations", func(t *testing.T) {
		gw := newGateway("", configuredSettings(), logs)
		_, err := gw.Send(context.Background(), gateway.SendRequest{AccountID: 7, Message: "x"})
		require.ErrorIs(t, err, gateway.ErrNoDestinations)
	})

	t.Run("settings missing", func(t *testing.T) {
		gw := newGateway("", nil, logs)
		_, err := gw.Send(context.Background(), gateway.SendRequest{AccountID: 7, To: []string{"+1"}, Message: "x"})
		require.ErrorIs(t, err, gateway.ErrSettingsNotConfigured)
	})

	t.Run("credentials missing", func(t *testing.T) {
		gw := newGateway("", &model.ProviderSettings{DefaultProvider: model.ProviderOnbuka}, logs)
		_, err := gw.Send(context.Background(), gateway.SendRequest{AccountID: 7, To: []string{"+1"}, Message: "x"})
		require.ErrorIs(t, err, gateway.ErrCredentialsMissing)
	})

	t.Run("unknown provider", func(t *testing.T) {
		gw := newGateway("", configuredSettings(), logs)
		_, err := gw.Send(context.Background(), gateway.SendRequest{
			AccountID: 7, To: []string{"+1"}, Message: "x", Provider: model.Provider("twilio"),
		})
		require.ErrorIs(t, err, gateway.ErrUnknownProvider)
	})

	require.Empty(t, logs.inserted)
}

func TestSendFallsBackToDefaultProvider(t *testing.T) {
	var eimsHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		eimsHits++
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "0", "messageIds": []string{"e1"}})
	}))
	defer srv.Close()

	settings := &model.ProviderSettings{
		EIMSAccount2:    "acct",
		EIMSPassword2:   "pw",
		EIMSServers2:    srv.URL,
		DefaultProvider: model.ProviderEIMS2,
	}

	logs := &fakeLogsRepo{}
	gw := newGateway("", settings, logs)

	res, err := gw.Send(context.Background(), gateway.SendRequest{
		AccountID: 7,
		To:        []string{"+15550001"},
		Message:   "hello",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 1, eimsHits)
	require.Len(t, logs.inserted, 1)
	require.Equal(t, model.ProviderEIMS2, logs.inserted[0].Provider)
}
