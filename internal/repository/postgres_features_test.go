package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

func newMockFeatureWriter(t *testing.T) (*PostgresFeatureWriter, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresFeatureWriter(db, zap.NewNop()), mock
}

// fullColumnRows 目标表包含全部候选列
func fullColumnRows(keyColumns []featureColumn) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"column_name"})
	for _, c := range keyColumns {
		rows.AddRow(c.name)
	}
	for _, c := range featureValueColumns {
		rows.AddRow(c.name)
	}
	return rows
}

func featureRow(assetID int) *domain.FeatureRow {
	return &domain.FeatureRow{AssetID: assetID, AsOfDate: day("2023-05-14")}
}

func TestReplaceAllCommitsDeleteAndInserts(t *testing.T) {
	w, mock := newMockFeatureWriter(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs(featureSinkTable).
		WillReturnRows(fullColumnRows(dailyKeyColumns))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM faliure_probability_base").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectPrepare("INSERT INTO faliure_probability_base")
	mock.ExpectExec("INSERT INTO faliure_probability_base").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO faliure_probability_base").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := w.ReplaceAll(context.Background(), []*domain.FeatureRow{featureRow(1), featureRow(2)})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	w, mock := newMockFeatureWriter(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs(featureSinkTable).
		WillReturnRows(fullColumnRows(dailyKeyColumns))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM faliure_probability_base").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectPrepare("INSERT INTO faliure_probability_base")
	mock.ExpectExec("INSERT INTO faliure_probability_base").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := w.ReplaceAll(context.Background(), []*domain.FeatureRow{featureRow(1)})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAllMissingRequiredColumn(t *testing.T) {
	w, mock := newMockFeatureWriter(t)

	// 表里没有 faliure 标签列
	rows := sqlmock.NewRows([]string{"column_name"}).
		AddRow("asset_id").AddRow("reading_date").AddRow("sensor_vibration_avg")
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs(featureSinkTable).
		WillReturnRows(rows)

	err := w.ReplaceAll(context.Background(), []*domain.FeatureRow{featureRow(1)})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestReplaceAllDropsMissingOptionalColumns(t *testing.T) {
	w, mock := newMockFeatureWriter(t)

	// 只有键列和一个特征列，其余可选列降级跳过
	rows := sqlmock.NewRows([]string{"column_name"}).
		AddRow("asset_id").AddRow("reading_date").AddRow("faliure").
		AddRow("sensor_vibration_avg")
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs(featureSinkTable).
		WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM faliure_probability_base").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO faliure_probability_base \\(asset_id, reading_date, faliure, sensor_vibration_avg\\)")
	mock.ExpectExec("INSERT INTO faliure_probability_base").
		WithArgs(1, day("2023-05-14"), false, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := w.ReplaceAll(context.Background(), []*domain.FeatureRow{featureRow(1)})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSnapshotUsesExtractionDate(t *testing.T) {
	w, mock := newMockFeatureWriter(t)

	rows := sqlmock.NewRows([]string{"column_name"}).
		AddRow("asset_id").AddRow("extraction_date").AddRow("sensor_vibration_avg")
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs(featureSinkTable).
		WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectPrepare("ON CONFLICT \\(asset_id\\) DO UPDATE SET")
	mock.ExpectExec("INSERT INTO faliure_probability_base").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := w.UpsertSnapshot(context.Background(), []*domain.FeatureRow{featureRow(1)})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
