package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/campaign-dispatch/internal/dispatch"
	"github.com/ignite/campaign-dispatch/internal/domain"
	"github.com/ignite/campaign-dispatch/internal/reconcile"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestGetCampaignNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT .+ FROM campaigns`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := NewDispatchRepo(db).GetCampaign(context.Background(), "missing")
	if !errors.Is(err, dispatch.ErrCampaignNotFound) {
		t.Fatalf("error = %v, want ErrCampaignNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetCampaignScansRow(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM campaigns`).
		WithArgs("cmp-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "subject", "from_address", "html_content",
			"status", "sent_count", "opens_count", "clicks_count", "created_at", "updated_at",
		}).AddRow("cmp-1", "u-1", "Launch", "news@example.com", "<p>hi</p>", "draft", 0, 0, 0, now, now))

	c, err := NewDispatchRepo(db).GetCampaign(context.Background(), "cmp-1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != domain.CampaignDraft || c.Subject != "Launch" {
		t.Errorf("campaign = %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateCampaignStatusMissingCampaign(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(`UPDATE campaigns`).
		WithArgs("missing", "sending", 0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewDispatchRepo(db).UpdateCampaignStatus(context.Background(), "missing", domain.CampaignSending, 0)
	if !errors.Is(err, dispatch.ErrCampaignNotFound) {
		t.Fatalf("error = %v, want ErrCampaignNotFound", err)
	}
}

func TestUpdateCampaignStatusUpdatesRow(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(`UPDATE campaigns`).
		WithArgs("cmp-1", "sent", 70).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewDispatchRepo(db).UpdateCampaignStatus(context.Background(), "cmp-1", domain.CampaignSent, 70); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBulkInsertCampaignSendsSingleStatement(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(`INSERT INTO campaign_sends .+ ON CONFLICT \(campaign_id, contact_id\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	now := time.Now()
	rows := []domain.CampaignSend{
		{ID: "s-1", CampaignID: "cmp-1", ContactID: "c-1", Email: "a@example.com", Status: domain.SendPending, CreatedAt: now},
		{ID: "s-2", CampaignID: "cmp-1", ContactID: "c-2", Email: "b@example.com", Status: domain.SendPending, CreatedAt: now},
	}
	if err := NewDispatchRepo(db).BulkInsertCampaignSends(context.Background(), rows); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBulkInsertCampaignSendsEmpty(t *testing.T) {
	db, mock := setupTestDB(t)
	// No statement expected for an empty slice.
	if err := NewDispatchRepo(db).BulkInsertCampaignSends(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMarkSendsSent(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(`UPDATE campaign_sends`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := NewDispatchRepo(db).MarkSendsSent(context.Background(), "cmp-1", []string{"c-1", "c-2"}, "m-1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetSendByMessageIDNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT .+ FROM campaign_sends`).
		WithArgs("m-unknown").
		WillReturnError(sql.ErrNoRows)

	_, err := NewReconcileRepo(db).GetSendByMessageID(context.Background(), "m-unknown", "")
	if !errors.Is(err, reconcile.ErrSendNotFound) {
		t.Fatalf("error = %v, want ErrSendNotFound", err)
	}
}

func TestGetSendByMessageIDFiltersByEmail(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM campaign_sends .+ lower\(email\)`).
		WithArgs("m-1", "b@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "campaign_id", "contact_id", "email", "status", "provider_message_id", "sent_at", "created_at",
		}).AddRow("s-2", "cmp-1", "c-2", "b@example.com", "sent", "m-1", now, now))

	s, err := NewReconcileRepo(db).GetSendByMessageID(context.Background(), "m-1", "b@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if s.ContactID != "c-2" {
		t.Errorf("contact id = %s, want c-2", s.ContactID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpsertAnalytics(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(`INSERT INTO campaign_analytics .+ ON CONFLICT \(campaign_id, contact_id\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	at := time.Now()
	if err := NewReconcileRepo(db).UpsertAnalytics(context.Background(), "cmp-1", "c-1", &at, nil); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCountEngagement(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT COUNT\(opened_at\), COUNT\(clicked_at\)`).
		WithArgs("cmp-1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(12, 4))

	counts, err := NewReconcileRepo(db).CountEngagement(context.Background(), "cmp-1")
	if err != nil {
		t.Fatal(err)
	}
	if counts.Opens != 12 || counts.Clicks != 4 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestUpdateContactStatus(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(`UPDATE contacts`).
		WithArgs("c-9", "bounced").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewReconcileRepo(db).UpdateContactStatus(context.Background(), "c-9", domain.ContactBounced); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
