package campaign_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smsflow/smsflow/internal/campaign"
	"github.com/smsflow/smsflow/internal/config"
	"github.com/smsflow/smsflow/internal/gateway"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/repository"
	"github.com/stretchr/testify/require"
)

// fakeCampaignsRepo holds one campaign in memory.
type fakeCampaignsRepo struct {
	c           *model.Campaign
	sentAdded   int
	failedAdded int
	delivered   int
}

func (f *fakeCampaignsRepo) Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error {
	f.c = &c
	return nil
}

func (f *fakeCampaignsRepo) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	if f.c == nil || f.c.ID != id {
		return nil, nil
	}
	cp := *f.c
	return &cp, nil
}

func (f *fakeCampaignsRepo) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]model.Campaign, error) {
	if f.c == nil || f.c.AccountID != accountID {
		return nil, nil
	}
	return []model.Campaign{*f.c}, nil
}

func (f *fakeCampaignsRepo) TransitionStatus(ctx context.Context, tx *sqlx.Tx, id string, from, to model.CampaignStatus) (bool, error) {
	if f.c == nil || f.c.ID != id || f.c.Status != from {
		return false, nil
	}
	f.c.Status = to
	return true, nil
}

func (f *fakeCampaignsRepo) AddSendCounts(ctx context.Context, id string, sent, failed int) error {
	f.sentAdded += sent
	f.failedAdded += failed
	return nil
}

func (f *fakeCampaignsRepo) IncrementDelivered(ctx context.Context, id string) error {
	f.delivered++
	return nil
}

// fakeRecipientsRepo keeps recipient rows in insertion order and enforces
// the same status guards as the real repository.
type fakeRecipientsRepo struct {
	rows []*model.CampaignRecipient
}

func (f *fakeRecipientsRepo) BulkInsert(ctx context.Context, tx *sqlx.Tx, campaignID string, phones []string) error {
	base := len(f.rows)
	for i, p := range phones {
		f.rows = append(f.rows, &model.CampaignRecipient{
			ID:         fmt.Sprintf("r%d", base+i+1),
			CampaignID: campaignID,
			Phone:      p,
			Status:     model.SmsStatusPending,
		})
	}
	return nil
}

func (f *fakeRecipientsRepo) PendingPage(ctx context.Context, campaignID string, limit int) ([]model.CampaignRecipient, error) {
	var out []model.CampaignRecipient
	for _, r := range f.rows {
		if r.CampaignID == campaignID && r.Status == model.SmsStatusPending {
			out = append(out, *r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRecipientsRepo) MarkPageSent(ctx context.Context, marks []repository.SentMark) error {
	for _, m := range marks {
		for _, r := range f.rows {
			if r.ID == m.RecipientID && r.Status == model.SmsStatusPending {
				r.Status = model.SmsStatusSent
				if m.MessageID != "" {
					id := m.MessageID
					r.MessageID = &id
				}
			}
		}
	}
	return nil
}

func (f *fakeRecipientsRepo) MarkPageFailed(ctx context.Context, ids []string, reason string) error {
	for _, id := range ids {
		for _, r := range f.rows {
			if r.ID == id && r.Status == model.SmsStatusPending {
				r.Status = model.SmsStatusFailed
				msg := reason
				r.ErrorMessage = &msg
			}
		}
	}
	return nil
}

func (f *fakeRecipientsRepo) FindByMessageID(ctx context.Context, messageID string) (*model.CampaignRecipient, error) {
	for _, r := range f.rows {
		if r.MessageID != nil && *r.MessageID == messageID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRecipientsRepo) MarkDelivery(ctx context.Context, recipientID string, status model.SmsStatus, errMsg string) (bool, error) {
	for _, r := range f.rows {
		if r.ID == recipientID && r.Status == model.SmsStatusSent {
			r.Status = status
			if errMsg != "" {
				msg := errMsg
				r.ErrorMessage = &msg
			}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecipientsRepo) byStatus(status model.SmsStatus) int {
	n := 0
	for _, r := range f.rows {
		if r.Status == status {
			n++
		}
	}
	return n
}

// fakeSender returns canned gateway results and records every page.
type fakeSender struct {
	result gateway.Result
	err    error
	pages  [][]string
}

func (f *fakeSender) Send(ctx context.Context, req gateway.SendRequest) (gateway.Result, error) {
	f.pages = append(f.pages, req.To)
	if f.err != nil {
		return gateway.Result{}, f.err
	}
	res := f.result
	if res.Success && len(res.MessageIDs) == 0 {
		ids := make([]string, len(req.To))
		for i := range req.To {
			ids[i] = fmt.Sprintf("m%d", len(f.pages)*100+i)
		}
		res.MessageIDs = ids
	}
	return res, nil
}

func runningCampaign() *model.Campaign {
	sid := "ACME"
	return &model.Campaign{
		ID:        "camp-1",
		AccountID: 7,
		Name:      "august promo",
		Message:   "hello",
		SenderID:  &sid,
		Provider:  model.ProviderOnbuka,
		Status:    model.CampaignRunning,
	}
}

func dispatcherCfg(pageSize, maxPages int) config.DispatcherConfig {
	return config.DispatcherConfig{PageSize: pageSize, MaxPages: maxPages, PageWait: time.Millisecond}
}

func seedRecipients(t *testing.T, recips *fakeRecipientsRepo, campaignID string, n int) {
	t.Helper()
	phones := make([]string, n)
	for i := range phones {
		phones[i] = fmt.Sprintf("+1555000%d", i+1)
	}
	require.NoError(t, recips.BulkInsert(context.Background(), nil, campaignID, phones))
}

func TestAdvanceSendsAllPendingInPages(t *testing.T) {
	camps := &fakeCampaignsRepo{c: runningCampaign()}
	recips := &fakeRecipientsRepo{}
	seedRecipients(t, recips, "camp-1", 3)

	sender := &fakeSender{result: gateway.Result{Success: true}}
	a := campaign.NewAdvancer(camps, recips, sender, dispatcherCfg(2, 10))

	out, err := a.Advance(context.Background(), "camp-1")
	require.NoError(t, err)
	require.Equal(t, campaign.StatusProcessing, out.Status)
	require.Equal(t, 3, out.Sent)
	require.Zero(t, out.Failed)

	// two pages: 2 + 1
	require.Len(t, sender.pages, 2)
	require.Len(t, sender.pages[0], 2)
	require.Len(t, sender.pages[1], 1)

	require.Equal(t, 3, recips.byStatus(model.SmsStatusSent))
	require.Zero(t, recips.byStatus(model.SmsStatusPending))
	require.Equal(t, 3, camps.sentAdded)
	require.Zero(t, camps.failedAdded)

	for _, r := range recips.rows {
		require.NotNil(t, r.MessageID)
	}
}

func TestAdvanceCompletesWhenNothingPending(t *testing.T) {
	camps := &fakeCampaignsRepo{c: runningCampaign()}
	recips := &fakeRecipientsRepo{}

	sender := &fakeSender{result: gateway.Result{Success: true}}
	a := campaign.NewAdvancer(camps, recips, sender, dispatcherCfg(2, 10))

	out, err := a.Advance(context.Background(), "camp-1")
	require.NoError(t, err)
	require.Equal(t, campaign.StatusCompleted, out.Status)
	require.Equal(t, model.CampaignCompleted, camps.c.Status)
	require.Empty(t, sender.pages)
}

func TestAdvanceCompletedCampaignIsNoOp(t *testing.T) {
	c := runningCampaign()
	c.Status = model.CampaignCompleted
	camps := &fakeCampaignsRepo{c: c}
	recips := &fakeRecipientsRepo{}

	sender := &fakeSender{result: gateway.Result{Success: true}}
	a := campaign.NewAdvancer(camps, recips, sender, dispatcherCfg(2, 10))

	out, err := a.Advance(context.Background(), "camp-1")
	require.NoError(t, err)
	require.Equal(t, campaign.StatusCompleted, out.Status)
	require.Empty(t, sender.pages)
}

func TestAdvanceRefusesNonRunningCampaigns(t *testing.T) {
	for _, status := range []model.CampaignStatus{
		model.CampaignDraft,
		model.CampaignPaused,
		model.CampaignFailed,
	} {
		c := runningCampaign()
		c.Status = status
		camps := &fakeCampaignsRepo{c: c}

		a := campaign.NewAdvancer(camps, &fakeRecipientsRepo{}, &fakeSender{}, dispatcherCfg(2, 10))
		_, err := a.Advance(context.Background(), "camp-1")
		require.ErrorIs(t, err, campaign.ErrNotDispatchable, "status %s", status)
	}
}

func TestAdvanceUnknownCampaign(t *testing.T) {
	a := campaign.NewAdvancer(&fakeCampaignsRepo{}, &fakeRecipientsRepo{}, &fakeSender{}, dispatcherCfg(2, 10))
	_, err := a.Advance(context.Background(), "nope")
	require.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestAdvancePageFailureFailsWholePage(t *testing.T) {
	camps := &fakeCampaignsRepo{c: runningCampaign()}
	recips := &fakeRecipientsRepo{}
	seedRecipients(t, recips, "camp-1", 2)

	sender := &fakeSender{result: gateway.Result{Success: false, Err: "Onbuka error 1: invalid sender"}}
	a := campaign.NewAdvancer(camps, recips, sender, dispatcherCfg(10, 10))

	out, err := a.Advance(context.Background(), "camp-1")
	require.NoError(t, err)
	require.Equal(t, campaign.StatusProcessing, out.Status)
	require.Zero(t, out.Sent)
	require.Equal(t, 2, out.Failed)

	require.Equal(t, 2, recips.byStatus(model.SmsStatusFailed))
	require.Equal(t, 2, camps.failedAdded)
	for _, r := range recips.rows {
		require.NotNil(t, r.ErrorMessage)
		require.Equal(t, "Onbuka error 1: invalid sender", *r.ErrorMessage)
	}
}

func TestAdvanceStopsAtMaxPages(t *testing.T) {
	camps := &fakeCampaignsRepo{c: runningCampaign()}
	recips := &fakeRecipientsRepo{}
	seedRecipients(t, recips, "camp-1", 5)

	sender := &fakeSender{result: gateway.Result{Success: true}}
	a := campaign.NewAdvancer(camps, recips, sender, dispatcherCfg(1, 2))

	out, err := a.Advance(context.Background(), "camp-1")
	require.NoError(t, err)
	require.Equal(t, campaign.StatusProcessing, out.Status)
	require.Equal(t, 2, out.Sent)
	require.Equal(t, 3, recips.byStatus(model.SmsStatusPending))
	require.Equal(t, model.CampaignRunning, camps.c.Status)
}
