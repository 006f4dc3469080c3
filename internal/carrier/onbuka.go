package carrier

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smsflow/smsflow/internal/model"
)

const defaultOnbukaBaseURL = "https://api.onbuka.com/v3"

// Onbuka is carrier family 1: HTTP+JSON with a keyed digest over
// api_key + api_secret + unix_timestamp sent alongside the plaintext
// timestamp. The upstream rejects stale timestamps, so the digest is
// computed with wall-clock time at call time, never at batch-build time.
type Onbuka struct {
	baseURL string
	client  *http.Client
}

func NewOnbuka(baseURL string, client *http.Client) *Onbuka {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOnbukaBaseURL
	}
	return &Onbuka{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (o *Onbuka) Name() model.Provider { return model.ProviderOnbuka }

func onbukaSign(apiKey, apiSecret, timestamp string) string {
	sum := md5.Sum([]byte(apiKey + apiSecret + timestamp))
	return hex.EncodeToString(sum[:])
}

type onbukaRequest struct {
	AppID    string `json:"appId"`
	Numbers  string `json:"numbers"`
	Content  string `json:"content"`
	SenderID string `json:"senderId,omitempty"`
}

type onbukaResponse struct {
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	Balance string `json:"balance"`
	Gift    string `json:"gift"`
	Array   []struct {
		MsgID  string `json:"msgId"`
		Number string `json:"number"`
	} `json:"array"`
}

func (o *Onbuka) Send(ctx context.Context, creds model.ProviderSettings, destinations []string, body, senderID string) SendResult {
	if !creds.Configured(model.ProviderOnbuka) {
		return failure("Onbuka credentials not configured")
	}

	payload, _ := json.Marshal(onbukaRequest{
		AppID:    creds.OnbukaAppID,
		Numbers:  strings.Join(destinations, ","),
		Content:  body,
		SenderID: senderID,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/sendSms", bytes.NewReader(payload))
	if err != nil {
		return failure("Onbuka request build failed: %v", err)
	}
	o.setHeaders(req, creds)
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	var resp onbukaResponse
	if err := o.do(req, &resp); err != nil {
		return failure("Onbuka request failed: %v", err)
	}

	if resp.Status != "0" {
		return failure("Onbuka error %s: %s", resp.Status, resp.Reason)
	}

	ids := make([]string, 0, len(resp.Array))
	for _, m := range resp.Array {
		ids = append(ids, m.MsgID)
	}
	return SendResult{Accepted: true, MessageIDs: ids}
}

// Balance queries the account balance through the same signed endpoint
// family as sendSms.
func (o *Onbuka) Balance(ctx context.Context, creds model.ProviderSettings) (balance, gift string, err error) {
	if creds.OnbukaAPIKey == "" || creds.OnbukaAPISecret == "" {
		return "", "", fmt.Errorf("onbuka credentials not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/getBalance", nil)
	if err != nil {
		return "", "", err
	}
	o.setHeaders(req, creds)

	var resp onbukaResponse
	if err := o.do(req, &resp); err != nil {
		return "", "", err
	}
	if resp.Status != "0" {
		return "", "", fmt.Errorf("onbuka error %s: %s", resp.Status, resp.Reason)
	}
	return resp.Balance, resp.Gift, nil
}

func (o *Onbuka) setHeaders(req *http.Request, creds model.ProviderSettings) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("Api-Key", creds.OnbukaAPIKey)
	req.Header.Set("Sign", onbukaSign(creds.OnbukaAPIKey, creds.OnbukaAPISecret, ts))
	req.Header.Set("Timestamp", ts)
}

func (o *Onbuka) do(req *http.Request, out *onbukaResponse) error {
	res, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response: %v", err)
	}
	return nil
}
