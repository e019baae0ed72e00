package report

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreGetByFormID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	blocks := []byte(`[{"token":"opening","example":"Welcome"}]`)
	mock.ExpectQuery(`SELECT id, title, source_form_id, opening_content, closing_content, ai_blocks, published\s+FROM reports`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "source_form_id", "opening_content", "closing_content", "ai_blocks", "published"}).
			AddRow(int64(11), "Skin Quiz", int64(7), "intro", "outro {ai.closing}", blocks, true))

	store := newPostgresStoreWithDB(mock)
	got, err := store.GetByFormID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(11), got.ID)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, "opening", got.Blocks[0].Token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetByFormIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, title, source_form_id`).
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "source_form_id", "opening_content", "closing_content", "ai_blocks", "published"}))

	store := newPostgresStoreWithDB(mock)
	_, err = store.GetByFormID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreListPublishedSections(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	weights := []byte(`{"color":{"blue":5}}`)
	mock.ExpectQuery(`SELECT id, report_id, title, content, field_weights, published, position\s+FROM report_sections`).
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "report_id", "title", "content", "field_weights", "published", "position"}).
			AddRow(int64(21), int64(11), "Hydration", "body", weights, true, 1).
			AddRow(int64(22), int64(11), "Barrier", "body", []byte(nil), true, 2))

	store := newPostgresStoreWithDB(mock)
	sections, err := store.ListPublishedSections(context.Background(), 11)
	require.NoError(t, err)

	require.Len(t, sections, 2)
	assert.Equal(t, 5, sections[0].FieldWeights["color"]["blue"])
	assert.Nil(t, sections[1].FieldWeights)
	require.NoError(t, mock.ExpectationsWereMet())
}
