package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	echo "github.com/labstack/echo/v4"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/reconciler"
	"github.com/smsflow/smsflow/internal/repository"
	"github.com/stretchr/testify/require"
)

type stubLogsRepo struct {
	marked map[string]model.SmsStatus
}

func (s *stubLogsRepo) InsertBatch(ctx context.Context, logs []model.SmsLog) error { return nil }

func (s *stubLogsRepo) GetByMessageID(ctx context.Context, messageID string) (*model.SmsLog, error) {
	return nil, nil
}

func (s *stubLogsRepo) MarkDelivery(ctx context.Context, messageID string, status model.SmsStatus, errMsg string) (bool, error) {
	if s.marked == nil {
		s.marked = map[string]model.SmsStatus{}
	}
	s.marked[messageID] = status
	return true, nil
}

type stubRecipientsRepo struct{}

func (stubRecipientsRepo) BulkInsert(ctx context.Context, tx *sqlx.Tx, campaignID string, phones []string) error {
	return nil
}

func (stubRecipientsRepo) PendingPage(ctx context.Context, campaignID string, limit int) ([]model.CampaignRecipient, error) {
	return nil, nil
}

func (stubRecipientsRepo) MarkPageSent(ctx context.Context, marks []repository.SentMark) error {
	return nil
}

func (stubRecipientsRepo) MarkPageFailed(ctx context.Context, ids []string, reason string) error {
	return nil
}

func (stubRecipientsRepo) FindByMessageID(ctx context.Context, messageID string) (*model.CampaignRecipient, error) {
	return nil, nil
}

func (stubRecipientsRepo) MarkDelivery(ctx context.Context, recipientID string, status model.SmsStatus, errMsg string) (bool, error) {
	return false, nil
}

type stubCampaignsRepo struct{}

func (stubCampaignsRepo) Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error { return nil }

func (stubCampaignsRepo) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	return nil, nil
}

func (stubCampaignsRepo) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]model.Campaign, error) {
	return nil, nil
}

func (stubCampaignsRepo) TransitionStatus(ctx context.Context, tx *sqlx.Tx, id string, from, to model.CampaignStatus) (bool, error) {
	return false, nil
}

func (stubCampaignsRepo) AddSendCounts(ctx context.Context, id string, sent, failed int) error {
	return nil
}

func (stubCampaignsRepo) IncrementDelivered(ctx context.Context, id string) error { return nil }

func postWebhook(t *testing.T, h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestDeliveryWebhookBatch(t *testing.T) {
	logs := &stubLogsRepo{}
	h := deliveryWebhookHandler(reconciler.New(logs, stubRecipientsRepo{}, stubCampaignsRepo{}))

	rec := postWebhook(t, h, `[{"msgId":"m1","status":"0"},{"msgId":"m2","status":"13"}]`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"processed":2}`, rec.Body.String())
	require.Equal(t, model.SmsStatusDelivered, logs.marked["m1"])
	require.Equal(t, model.SmsStatusFailed, logs.marked["m2"])
}

func TestDeliveryWebhookSingleObject(t *testing.T) {
	logs := &stubLogsRepo{}
	h := deliveryWebhookHandler(reconciler.New(logs, stubRecipientsRepo{}, stubCampaignsRepo{}))

	rec := postWebhook(t, h, `{"msgId":"m1","status":"0"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"processed":1}`, rec.Body.String())
}

func TestDeliveryWebhookRejectsGarbage(t *testing.T) {
	h := deliveryWebhookHandler(reconciler.New(&stubLogsRepo{}, stubRecipientsRepo{}, stubCampaignsRepo{}))

	for _, body := range []string{"", "not json", `{"status":"0"}`} {
		rec := postWebhook(t, h, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}
