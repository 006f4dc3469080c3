package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/smsflow/smsflow/internal/model"
)

// EIMS is carrier family 2: plain HTTP+JSON against the first configured
// server of the account. Three independently credentialed accounts are
// registered as eims_1..eims_3.
type EIMS struct {
	account int
	client  *http.Client
}

func NewEIMS(account int, client *http.Client) *EIMS {
	return &EIMS{account: account, client: client}
}

func (e *EIMS) Name() model.Provider {
	return model.Provider(fmt.Sprintf("eims_%d", e.account))
}

type eimsRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
	Numbers  string `json:"numbers"`
	Content  string `json:"content"`
}

type eimsResponse struct {
	Status     any      `json:"status"` // number 0 or string "0" on success
	MessageIDs []string `json:"messageIds"`
	Error      string   `json:"error"`
}

func (r eimsResponse) ok() bool {
	switch v := r.Status.(type) {
	case string:
		return v == "0"
	case float64:
		return v == 0
	}
	return false
}

func (e *EIMS) Send(ctx context.Context, creds model.ProviderSettings, destinations []string, body, _ string) SendResult {
	account, password, servers := creds.EIMSAccount(e.account)
	if account == "" || password == "" || servers == "" {
		return failure("EIMS account %d not configured", e.account)
	}

	server := firstServer(servers)
	if server == "" {
		return failure("EIMS account %d has no servers configured", e.account)
	}

	payload, _ := json.Marshal(eimsRequest{
		Account:  account,
		Password: password,
		Numbers:  strings.Join(destinations, ","),
		Content:  body,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/sms/send", bytes.NewReader(payload))
	if err != nil {
		return failure("EIMS request build failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := e.client.Do(req)
	if err != nil {
		return failure("EIMS connection error: %v", err)
	}
	defer res.Body.Close()

	var resp eimsResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return failure("EIMS malformed response: %v", err)
	}

	if !resp.ok() {
		reason := resp.Error
		if reason == "" {
			reason = fmt.Sprintf("status %v", resp.Status)
		}
		return failure("EIMS error: %s", reason)
	}

	return SendResult{Accepted: true, MessageIDs: resp.MessageIDs}
}

func firstServer(servers string) string {
	for _, s := range strings.Split(servers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			return strings.TrimRight(s, "/")
		}
	}
	return ""
}
