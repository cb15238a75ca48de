package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingmyweb/pingd/internal/ping"
)

func sampleReport() ping.DispatchReport {
	return ping.DispatchReport{
		ping.CategorySearchEngines: {
			"google": {Target: "google", Success: true, Code: ping.AttemptOK, StatusCode: 200},
		},
	}
}

func TestHistoryStoreRecordInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStore(mock)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := sampleReport()
	reportJSON, err := json.Marshal(report)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO ping_history").
		WithArgs("rec-1", "user-1", "url-1", "https://example.com", reportJSON, "abc123", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Record(context.Background(), ping.HistoryRecord{
		ID:          "rec-1",
		UserID:      "user-1",
		URLID:       "url-1",
		URL:         "https://example.com",
		Report:      report,
		ContentHash: "abc123",
		CreatedAt:   now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStoreRecordRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStore(mock)
	require.NoError(t, err)

	err = store.Record(context.Background(), ping.HistoryRecord{UserID: "user-1"})
	require.Error(t, err)
}

func TestHistoryStoreQueryPagesAndFilters(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStore(mock)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reportJSON, err := json.Marshal(sampleReport())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1", "%blog%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT id, user_id, url_id, url, report").
		WithArgs("user-1", "%blog%", 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "url_id", "url", "report", "content_hash", "created_at"}).
			AddRow("rec-2", "user-1", "url-1", "https://example.com/blog/2", reportJSON, "h2", now.Add(time.Hour)).
			AddRow("rec-1", "user-1", "url-1", "https://example.com/blog/1", reportJSON, "h1", now))

	page, err := store.Query(context.Background(), "user-1",
		ping.HistoryFilter{URLSubstring: "blog"},
		ping.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "rec-2", page.Records[0].ID)
	assert.Equal(t, sampleReport(), page.Records[0].Report)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStoreQueryByURLID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStore(mock)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reportJSON, err := json.Marshal(sampleReport())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1", "url-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`url_id = \$2`).
		WithArgs("user-1", "url-1", 1, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "url_id", "url", "report", "content_hash", "created_at"}).
			AddRow("rec-1", "user-1", "url-1", "https://example.com/blog", reportJSON, "h1", now))

	page, err := store.Query(context.Background(), "user-1",
		ping.HistoryFilter{URLID: "url-1"},
		ping.Page{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "url-1", page.Records[0].URLID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStoreQueryDateRange(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStore(mock)
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT id, user_id, url_id, url, report").
		WithArgs("user-1", from, to, 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "url_id", "url", "report", "content_hash", "created_at"}))

	page, err := store.Query(context.Background(), "user-1",
		ping.HistoryFilter{From: &from, To: &to},
		ping.Page{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Records)
	assert.Equal(t, defaultHistoryPageSize, page.Limit)
	require.NoError(t, mock.ExpectationsWereMet())
}
