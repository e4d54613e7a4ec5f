package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, prefix string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, prefix, logging.NewDiscardLogger()), mock
}

func TestStore_Init(t *testing.T) {
	s, mock := newMockStore(t, "po_")

	for _, c := range store.Collections() {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `po_" + c + "`")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `po_app_settings`")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InitFailure(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").
		WillReturnError(&driver.MySQLError{Number: 1142, Message: "CREATE command denied"})

	err := s.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create table for printers")
}

func TestStore_Get(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM `printers` WHERE id = ?")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"id":"p1","pages":12}`)))

	rec, err := s.Get(context.Background(), store.CollectionPrinters, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", rec["id"])
	assert.Equal(t, json.Number("12"), rec["pages"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetNotFound(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM `users` WHERE id = ?")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, err := s.Get(context.Background(), store.CollectionUsers, "ghost")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStore_GetAll(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM `orders` ORDER BY position")).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"id":"o2"}`)).
			AddRow([]byte(`{"id":"o1","lines":[{"sku":"T-1"}]}`)))

	records, err := s.GetAll(context.Background(), store.CollectionOrders)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "o2", records[0]["id"])
	assert.Equal(t, []any{map[string]any{"sku": "T-1"}}, records[1]["lines"])
}

func TestStore_GetAllEmptyIsNotNil(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectQuery("SELECT data FROM `tickets`").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	records, err := s.GetAll(context.Background(), store.CollectionTickets)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestStore_MissingTableIsCollectionLevel(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectQuery("SELECT data FROM `loans`").
		WillReturnError(&driver.MySQLError{Number: 1146, Message: "Table 'printops.loans' doesn't exist"})

	_, err := s.GetAll(context.Background(), store.CollectionLoans)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrCollectionUnavailable))
}

func TestStore_UnknownCollectionIssuesNoQuery(t *testing.T) {
	s, mock := newMockStore(t, "")

	_, err := s.GetAll(context.Background(), "widgets")
	assert.True(t, errors.Is(err, store.ErrUnknownCollection))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddBatch(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `inventory` (id, data) VALUES (?, ?), (?, ?)")).
		WithArgs("a", sqlmock.AnyArg(), "b", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.AddBatch(context.Background(), store.CollectionInventory, []store.Record{
		{"id": "a", "qty": 1},
		{"id": "b", "qty": 2},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddBatchDuplicateRollsBack(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `inventory`").
		WillReturnError(&driver.MySQLError{Number: 1062, Message: "Duplicate entry 'a' for key 'PRIMARY'"})
	mock.ExpectRollback()

	err := s.AddBatch(context.Background(), store.CollectionInventory, []store.Record{{"id": "a"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrDuplicateID))
	assert.False(t, errors.Is(err, store.ErrCollectionUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddBatchMissingID(t *testing.T) {
	s, mock := newMockStore(t, "")

	err := s.AddBatch(context.Background(), store.CollectionInventory, []store.Record{{"qty": 1}})
	assert.True(t, errors.Is(err, store.ErrMissingID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddBatchEmpty(t *testing.T) {
	s, mock := newMockStore(t, "")
	require.NoError(t, s.AddBatch(context.Background(), store.CollectionInventory, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Update(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `printers` SET data = ? WHERE id = ?")).
		WithArgs(sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Update(context.Background(), store.CollectionPrinters, store.Record{"id": "p1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateMissingRow(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `printers` SET data = ? WHERE id = ?")).
		WithArgs(sqlmock.AnyArg(), "p9").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM `printers` WHERE id = ?")).
		WithArgs("p9").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	err := s.Update(context.Background(), store.CollectionPrinters, store.Record{"id": "p9"})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStore_Upsert(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `tonerModels` (id, data) VALUES (?, ?) ON DUPLICATE KEY UPDATE data = VALUES(data)")).
		WithArgs("tm1", []byte(`{"id":"tm1","yield":3000}`)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := s.Upsert(context.Background(), store.CollectionTonerModels, store.Record{"id": "tm1", "yield": 3000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteAndClear(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `changes` WHERE id = ?")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `changes`")).
		WillReturnResult(sqlmock.NewResult(0, 7))

	require.NoError(t, s.Delete(context.Background(), store.CollectionChanges, "c1"))
	require.NoError(t, s.Clear(context.Background(), store.CollectionChanges))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ClearLostConnection(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectExec("DELETE FROM `operators`").
		WillReturnError(&driver.MySQLError{Number: 2006, Message: "MySQL server has gone away"})

	err := s.Clear(context.Background(), store.CollectionOperators)
	assert.True(t, errors.Is(err, store.ErrCollectionUnavailable))
}

func TestStore_Settings(t *testing.T) {
	s, mock := newMockStore(t, "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM `app_settings` WHERE setting_key = ?")).
		WithArgs("printerViewMode").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`"grid"`)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM `app_settings` WHERE setting_key = ?")).
		WithArgs("ticketSortOrder").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `app_settings` (setting_key, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)")).
		WithArgs("defaultPrinterTab", []byte(`"toner"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()

	v, err := s.GetSetting(ctx, "printerViewMode")
	require.NoError(t, err)
	assert.Equal(t, "grid", v)

	v, err = s.GetSetting(ctx, "ticketSortOrder")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.SetSetting(ctx, "defaultPrinterTab", "toner"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
