package carrier_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smsflow/smsflow/internal/carrier"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/stretchr/testify/require"
)

func onbukaCreds() model.ProviderSettings {
	return model.ProviderSettings{
		OnbukaAPIKey:    "key-1",
		OnbukaAPISecret: "secret-1",
		OnbukaAppID:     "app-1",
	}
}

func TestOnbukaSendSuccess(t *testing.T) {
	var gotReq struct {
		AppID    string `json:"appId"`
		Numbers  string `json:"numbers"`
		Content  string `json:"content"`
		SenderID string `json:"senderId"`
	}
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sendSms", r.URL.Path)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "0",
			"array": []map[string]string{
				{"msgId": "m1", "number": "+15550001"},
				{"msgId": "m2", "number": "+15550002"},
			},
		})
	}))
	defer srv.Close()

	o := carrier.NewOnbuka(srv.URL, srv.Client())
	res := o.Send(context.Background(), onbukaCreds(), []string{"+15550001", "+15550002"}, "hello", "ACME")

	require.True(t, res.Accepted)
	require.Empty(t, res.Err)
	require.Equal(t, []string{"m1", "m2"}, res.MessageIDs)

	require.Equal(t, "app-1", gotReq.AppID)
	require.Equal(t, "+15550001,+15550002", gotReq.Numbers)
	require.Equal(t, "hello", gotReq.Content)
	require.Equal(t, "ACME", gotReq.SenderID)

	// digest over api_key + api_secret + timestamp
	require.Equal(t, "key-1", gotHeaders.Get("Api-Key"))
	ts := gotHeaders.Get("Timestamp")
	require.NotEmpty(t, ts)
	sum := md5.Sum([]byte("key-1" + "secret-1" + ts))
	require.Equal(t, hex.EncodeToString(sum[:]), gotHeaders.Get("Sign"))
}

func TestOnbukaSendUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "1", "reason": "invalid sender"})
	}))
	defer srv.Close()

	o := carrier.NewOnbuka(srv.URL, srv.Client())
	res := o.Send(context.Background(), onbukaCreds(), []string{"+15550001"}, "hi", "")

	require.False(t, res.Accepted)
	require.Equal(t, "Onbuka error 1: invalid sender", res.Err)
	require.Empty(t, res.MessageIDs)
}

func TestOnbukaSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	o := carrier.NewOnbuka(srv.URL, &http.Client{Timeout: time.Second})
	res := o.Send(context.Background(), onbukaCreds(), []string{"+15550001"}, "hi", "")

	require.False(t, res.Accepted)
	require.Contains(t, res.Err, "Onbuka request failed")
}

func TestOnbukaSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o := carrier.NewOnbuka(srv.URL, srv.Client())
	res := o.Send(context.Background(), onbukaCreds(), []string{"+15550001"}, "hi", "")

	require.False(t, res.Accepted)
	require.Contains(t, res.Err, "status=502")
}

func TestOnbukaSendMissingCredentials(t *testing.T) {
	o := carrier.NewOnbuka("", &http.Client{})
	res := o.Send(context.Background(), model.ProviderSettings{}, []string{"+15550001"}, "hi", "")

	require.False(t, res.Accepted)
	require.Equal(t, "Onbuka credentials not configured", res.Err)
}

func TestOnbukaBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getBalance", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("Sign"))
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "0", "balance": "42.50", "gift": "1.00"})
	}))
	defer srv.Close()

	o := carrier.NewOnbuka(srv.URL, srv.Client())
	balance, gift, err := o.Balance(context.Background(), onbukaCreds())
	require.NoError(t, err)
	require.Equal(t, "42.50", balance)
	require.Equal(t, "1.00", gift)
}
