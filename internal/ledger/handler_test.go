package ledger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func newPostEntryRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(shared.ContextWithScope(req.Context(), shared.Scope{
		UserID:    9,
		CompanyID: 1,
	}))
}

func TestHandlePostCarriesReference(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)
	h := NewHandler(nil, svc)

	rr := httptest.NewRecorder()
	h.handlePost(rr, newPostEntryRequest(`{
		"date": "2026-03-01",
		"memo": "office rent",
		"reference": "INV-2026-031",
		"lines": [
			{"account_id": 10, "debit": 500},
			{"account_id": 20, "credit": 500}
		]
	}`))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, repo.entries, 1)
	for _, entry := range repo.entries {
		assert.Equal(t, "INV-2026-031", entry.Reference)
		assert.Equal(t, "office rent", entry.Memo)
		assert.Equal(t, int64(9), entry.PostedBy)
	}
}

func TestHandlePostReferenceOptional(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)
	h := NewHandler(nil, svc)

	rr := httptest.NewRecorder()
	h.handlePost(rr, newPostEntryRequest(`{
		"lines": [
			{"account_id": 10, "debit": 25},
			{"account_id": 20, "credit": 25}
		]
	}`))

	require.Equal(t, http.StatusCreated, rr.Code)
	for _, entry := range repo.entries {
		assert.Empty(t, entry.Reference)
	}
}
