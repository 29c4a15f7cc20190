package accounts

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgercore/internal/model"
)

func TestRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{ID: 1112, Code: "1112", Name: "Business Checking", Type: model.AccountTypeAsset, Active: true, Description: "Primary checking account"},
		{ID: 5111, Code: "5111", Name: "Fuel", Type: model.AccountTypeExpense, ParentID: 511, Active: false},
	}

	var buf bytes.Buffer
	err := WriteAccounts(&buf, accounts)
	require.NoError(t, err)

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, accounts[0], got[0])
	assert.Equal(t, accounts[1], got[1])
}

func TestParentID(t *testing.T) {
	accounts := []model.Account{
		{ID: 1, Code: "1", Name: "Assets", Type: model.AccountTypeAsset, Active: true},
		{ID: 11, Code: "11", Name: "Current", Type: model.AccountTypeAsset, ParentID: 1, Active: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].ParentID)
	assert.Equal(t, 1, got[1].ParentID)
}

func TestUnmarshalAccount_Errors(t *testing.T) {
	_, err := UnmarshalAccount([]string{"1", "1"})
	assert.ErrorContains(t, err, "expected 7 fields")

	_, err = UnmarshalAccount([]string{"x", "1", "A", "asset", "", "true", ""})
	assert.ErrorContains(t, err, "parsing account_id")

	_, err = UnmarshalAccount([]string{"1", "1", "A", "asset", "p", "true", ""})
	assert.ErrorContains(t, err, "parsing parent_id")

	_, err = UnmarshalAccount([]string{"1", "1", "A", "asset", "", "maybe", ""})
	assert.ErrorContains(t, err, "parsing active")
}

func TestUnmarshalAccount_ActiveDefaultsTrue(t *testing.T) {
	got, err := UnmarshalAccount([]string{"1", "1", "Assets", "asset", "", "", ""})
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestReadAccounts_ForeignHeader(t *testing.T) {
	in := "\ufeffName,Type,ID,Parent\n" +
		"Assets,Asset,1,\n" +
		"Cash,asset,10, 1\n"

	got, err := ReadAccounts(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.Account{ID: 1, Code: "1", Name: "Assets", Type: model.AccountTypeAsset, Active: true}, got[0])
	assert.Equal(t, model.Account{ID: 10, Code: "10", Name: "Cash", Type: model.AccountTypeAsset, ParentID: 1, Active: true}, got[1])
}

func TestReadAccounts_HeaderErrors(t *testing.T) {
	_, err := ReadAccounts(strings.NewReader("account_id,code\n1,1\n"))
	assert.ErrorContains(t, err, "missing account_name, account_type")

	_, err = ReadAccounts(strings.NewReader(strings.Join(Header, ",") + "\n1,1,A,asset,,true\n"))
	assert.Error(t, err)

	got, err := ReadAccounts(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("../../testdata/chart-of-accounts.csv")
	require.NoError(t, err)
	defer f.Close()

	accounts, err := ReadAccounts(f)
	require.NoError(t, err)
	require.Len(t, accounts, 12)

	types := make(map[model.AccountType]bool)
	for _, acct := range accounts {
		types[acct.Type] = true
	}
	assert.True(t, types[model.AccountTypeAsset])
	assert.True(t, types[model.AccountTypeLiability])
	assert.True(t, types[model.AccountTypeEquity])
	assert.True(t, types[model.AccountTypeRevenue])
	assert.True(t, types[model.AccountTypeExpense])

	svc, err := NewService(accounts)
	require.NoError(t, err)
	acct, ok := svc.Get(5112)
	require.True(t, ok)
	assert.False(t, acct.Active)
}

func TestDefaultChartRoundTrip(t *testing.T) {
	chart := DefaultChart("fleet_operator")

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, chart))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	assert.Equal(t, chart, got)
}
