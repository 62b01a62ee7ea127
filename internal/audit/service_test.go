package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	rows []TimelineRow

	lastCompanyID int64
	lastFilters   TimelineFilters
	lastLimit     int
	lastOffset    int
}

func (f *fakeRepo) Timeline(ctx context.Context, companyID int64, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	f.lastCompanyID = companyID
	f.lastFilters = filters
	f.lastLimit = limit
	f.lastOffset = offset
	if offset >= len(f.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], nil
}

func (f *fakeRepo) TimelineAll(ctx context.Context, companyID int64, filters TimelineFilters) ([]TimelineRow, error) {
	f.lastCompanyID = companyID
	f.lastFilters = filters
	return f.rows, nil
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, 0, n)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rows = append(rows, TimelineRow{
			At:       base.Add(time.Duration(i) * time.Minute),
			ActorID:  7,
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: "1",
		})
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &fakeRepo{rows: makeRows(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), 1, TimelineFilters{})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 20)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	// One extra row requested to detect the next page.
	assert.Equal(t, 21, repo.lastLimit)
	assert.Equal(t, int64(1), repo.lastCompanyID)

	result, err = svc.Timeline(context.Background(), 1, TimelineFilters{Page: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 5)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 1, result.Paging.PrevPage)
	assert.Equal(t, 20, repo.lastOffset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &fakeRepo{rows: makeRows(5)}
	svc := NewService(repo)

	_, err := svc.Timeline(context.Background(), 1, TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize+1, repo.lastLimit)

	_, err = svc.Timeline(context.Background(), 1, TimelineFilters{PageSize: -3})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize+1, repo.lastLimit)
}

func TestTimelinePassesFilters(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Timeline(context.Background(), 3, TimelineFilters{From: from, Action: "journal.reverse", Entity: "journal_entry"})
	require.NoError(t, err)
	assert.Equal(t, from, repo.lastFilters.From)
	assert.Equal(t, "journal.reverse", repo.lastFilters.Action)
	assert.Equal(t, "journal_entry", repo.lastFilters.Entity)
}

func TestExportReturnsAllRows(t *testing.T) {
	repo := &fakeRepo{rows: makeRows(120)}
	svc := NewService(repo)

	rows, err := svc.Export(context.Background(), 1, TimelineFilters{})
	require.NoError(t, err)
	assert.Len(t, rows, 120)
}

func TestServiceWithoutRepository(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Timeline(context.Background(), 1, TimelineFilters{})
	assert.Error(t, err)
	_, err = svc.Export(context.Background(), 1, TimelineFilters{})
	assert.Error(t, err)
}
