package accounts

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

type mockRepository struct {
	accounts map[int64]*Account
	nextID   int64
	lineRefs map[int64]int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts: make(map[int64]*Account),
		lineRefs: make(map[int64]int64),
	}
}

func (m *mockRepository) Create(ctx context.Context, in CreateInput) (Account, error) {
	for _, acc := range m.accounts {
		if acc.CompanyID == in.CompanyID && acc.Code == in.Code {
			return Account{}, ErrDuplicateCode
		}
	}
	m.nextID++
	acc := &Account{
		ID:        m.nextID,
		CompanyID: in.CompanyID,
		Code:      in.Code,
		Name:      in.Name,
		Type:      in.Type,
		ParentID:  in.ParentID,
		IsActive:  true,
	}
	m.accounts[acc.ID] = acc
	return *acc, nil
}

func (m *mockRepository) Get(ctx context.Context, companyID, id int64) (Account, error) {
	acc, ok := m.accounts[id]
	if !ok || acc.CompanyID != companyID {
		return Account{}, ErrNotFound
	}
	return *acc, nil
}

func (m *mockRepository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Account, error) {
	var out []Account
	for _, acc := range m.accounts {
		if acc.CompanyID != companyID {
			continue
		}
		if filter.Type != "" && acc.Type != filter.Type {
			continue
		}
		if filter.ActiveOnly && !acc.IsActive {
			continue
		}
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockRepository) Update(ctx context.Context, in UpdateInput) (Account, error) {
	acc, ok := m.accounts[in.ID]
	if !ok || acc.CompanyID != in.CompanyID {
		return Account{}, ErrNotFound
	}
	acc.Name = in.Name
	acc.ParentID = in.ParentID
	return *acc, nil
}

func (m *mockRepository) SetActive(ctx context.Context, companyID, id int64, active bool) error {
	acc, ok := m.accounts[id]
	if !ok || acc.CompanyID != companyID {
		return ErrNotFound
	}
	acc.IsActive = active
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, companyID, id int64) error {
	acc, ok := m.accounts[id]
	if !ok || acc.CompanyID != companyID {
		return ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *mockRepository) CountLineRefs(ctx context.Context, companyID, id int64) (int64, error) {
	return m.lineRefs[id], nil
}

func TestCreateAccount(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	acc, err := svc.Create(context.Background(), CreateInput{
		CompanyID: 1,
		Code:      " 1000 ",
		Name:      "Cash",
		Type:      ledger.AccountTypeAsset,
	})
	require.NoError(t, err)
	assert.Equal(t, "1000", acc.Code)
	assert.True(t, acc.IsActive)
}

func TestCreateAccountValidation(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateInput{CompanyID: 1, Name: "Cash", Type: ledger.AccountTypeAsset})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{CompanyID: 1, Code: "1000", Name: "Cash", Type: "WEIRD"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateAccountDuplicateCode(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	in := CreateInput{CompanyID: 1, Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset}
	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateAccountSameCodeDifferentCompany(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateInput{CompanyID: 1, Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{CompanyID: 2, Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset})
	assert.NoError(t, err)
}

func TestCreateAccountMissingParent(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	missing := int64(99)
	_, err := svc.Create(context.Background(), CreateInput{
		CompanyID: 1, Code: "1100", Name: "AR", Type: ledger.AccountTypeAsset, ParentID: &missing,
	})
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestUpdateAccountParentCycle(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	root, err := svc.Create(context.Background(), CreateInput{CompanyID: 1, Code: "1000", Name: "Assets", Type: ledger.AccountTypeAsset})
	require.NoError(t, err)
	child, err := svc.Create(context.Background(), CreateInput{CompanyID: 1, Code: "1100", Name: "Current", Type: ledger.AccountTypeAsset, ParentID: &root.ID})
	require.NoError(t, err)

	// Moving the root under its own descendant must fail.
	_, err = svc.Update(context.Background(), UpdateInput{CompanyID: 1, ID: root.ID, Name: "Assets", ParentID: &child.ID})
	assert.ErrorIs(t, err, ErrParentCycle)

	// Self-parenting fails immediately.
	_, err = svc.Update(context.Background(), UpdateInput{CompanyID: 1, ID: root.ID, Name: "Assets", ParentID: &root.ID})
	assert.ErrorIs(t, err, ErrParentCycle)
}

func TestDeleteAccountInUse(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	acc, err := svc.Create(context.Background(), CreateInput{CompanyID: 1, Code: "4000", Name: "Revenue", Type: ledger.AccountTypeRevenue})
	require.NoError(t, err)
	repo.lineRefs[acc.ID] = 3

	err = svc.Delete(context.Background(), 1, acc.ID)
	assert.ErrorIs(t, err, ErrInUse)

	// Deactivation is the supported path for posted-to accounts.
	require.NoError(t, svc.Deactivate(context.Background(), 1, acc.ID))
	got, err := svc.Get(context.Background(), 1, acc.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeleteUnusedAccount(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	acc, err := svc.Create(context.Background(), CreateInput{CompanyID: 1, Code: "9999", Name: "Scratch", Type: ledger.AccountTypeExpense})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1, acc.ID))
	_, err = svc.Get(context.Background(), 1, acc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersByTypeAndActive(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	cash, err := svc.Create(context.Background(), CreateInput{CompanyID: 1, Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{CompanyID: 1, Code: "4000", Name: "Revenue", Type: ledger.AccountTypeRevenue})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), 1, cash.ID))

	active, err := svc.List(context.Background(), 1, ListFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "4000", active[0].Code)

	assets, err := svc.List(context.Background(), 1, ListFilter{Type: ledger.AccountTypeAsset})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "1000", assets[0].Code)
}
