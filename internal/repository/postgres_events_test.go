package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newMockStore(t *testing.T) (*PostgresEventStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresEventStore(db), mock
}

func TestAllAssetIDs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT asset_id FROM assets").
		WillReturnRows(sqlmock.NewRows([]string{"asset_id"}).AddRow(1).AddRow(2).AddRow(5))

	ids, err := store.AllAssetIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 5}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM assets").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"asset_id"}))

	_, err := store.Asset(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssetScansNullableColumns(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"asset_id", "asset_name", "asset_type", "location", "installation_date",
		"manufacturer", "model_number", "status", "created_at", "updated_at",
	}).AddRow(1, "Pump A", "pump", "plant-1", day("2020-01-01"),
		nil, nil, "operational", day("2020-01-01"), day("2020-01-01"))
	mock.ExpectQuery("SELECT (.+) FROM assets").WithArgs(1).WillReturnRows(rows)

	a, err := store.Asset(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Pump A", a.AssetName)
	assert.Nil(t, a.Manufacturer)
	assert.Nil(t, a.ModelNumber)
}

func TestReadingDateSpanEmptyTable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT MIN\\(reading_timestamp\\), MAX\\(reading_timestamp\\)").
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(nil, nil))

	_, _, ok, err := store.ReadingDateSpan(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSensorReadingsUnknownAssetReturnsEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM plc_sensor_readings").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{
			"reading_id", "asset_id", "sensor_name", "sensor_type",
			"reading_value", "unit", "reading_timestamp", "status",
		}))

	readings, err := store.SensorReadings(context.Background(), 42, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestSensorReadingsWindowArgs(t *testing.T) {
	store, mock := newMockStore(t)
	start, end := day("2023-05-01"), day("2023-05-31")

	mock.ExpectQuery("SELECT (.+) FROM plc_sensor_readings").
		WithArgs(1, start, end).
		WillReturnRows(sqlmock.NewRows([]string{
			"reading_id", "asset_id", "sensor_name", "sensor_type",
			"reading_value", "unit", "reading_timestamp", "status",
		}).AddRow(10, 1, "vib-01", "vibration", 2.5, "mm/s", day("2023-05-10"), "normal"))

	readings, err := store.SensorReadings(context.Background(), 1, &start, &end)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "vibration", readings[0].SensorType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailuresWrapsStoreError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM assets_faliures").
		WillReturnError(errors.New("connection refused"))

	_, err := store.Failures(context.Background(), 1, nil, nil)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestMaintenanceTasksJoinsOrders(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM mantainance_tasks t\\s+JOIN mantainance_orders o").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{
			"task_id", "order_id", "asset_id", "task_name", "status",
			"estimated_hours", "actual_hours", "start_time", "end_time", "created_at",
		}).AddRow(7, 3, 1, "replace seal", "completed", 2.0, nil, nil, nil, day("2023-05-01")))

	tasks, err := store.MaintenanceTasks(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, tasks[0].AssetID)
	require.NotNil(t, tasks[0].EstimatedHours)
	assert.Equal(t, 2.0, *tasks[0].EstimatedHours)
	assert.Nil(t, tasks[0].ActualHours)
}
