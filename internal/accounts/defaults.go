package accounts

import "github.com/cleared-dev/ledgercore/internal/model"

// DefaultChart returns the default chart of accounts for an entity type.
func DefaultChart(entityType string) []model.Account {
	switch entityType {
	case "fleet_operator":
		return fleetOperatorChart()
	default:
		return fleetOperatorChart()
	}
}

func acct(id int, code, name string, t model.AccountType, parent int) model.Account {
	return model.Account{ID: id, Code: code, Name: name, Type: t, ParentID: parent, Active: true}
}

func fleetOperatorChart() []model.Account {
	const (
		a = model.AccountTypeAsset
		l = model.AccountTypeLiability
		e = model.AccountTypeEquity
		r = model.AccountTypeRevenue
		x = model.AccountTypeExpense
	)
	return []model.Account{
		acct(1, "1", "Assets", a, 0),
		acct(11, "11", "Current Assets", a, 1),
		acct(111, "111", "Cash and Banks", a, 11),
		acct(1111, "1111", "Cash on Hand", a, 111),
		acct(1112, "1112", "Business Checking", a, 111),
		acct(112, "112", "Receivables", a, 11),
		acct(1121, "1121", "Accounts Receivable", a, 112),
		acct(113, "113", "Tax Receivable", a, 11),
		acct(1131, "1131", "VAT Input", a, 113),

		acct(2, "2", "Liabilities", l, 0),
		acct(21, "21", "Current Liabilities", l, 2),
		acct(211, "211", "Payables", l, 21),
		acct(2111, "2111", "Accounts Payable", l, 211),
		acct(212, "212", "Taxes Payable", l, 21),
		acct(2121, "2121", "VAT Output", l, 212),

		acct(3, "3", "Equity", e, 0),
		acct(31, "31", "Capital", e, 3),
		acct(311, "311", "Owner's Capital", e, 31),
		acct(3111, "3111", "Owner's Capital", e, 311),
		acct(312, "312", "Retained Earnings", e, 31),
		acct(3121, "3121", "Retained Earnings", e, 312),

		acct(4, "4", "Revenue", r, 0),
		acct(41, "41", "Operating Revenue", r, 4),
		acct(411, "411", "Sales", r, 41),
		acct(4111, "4111", "Service Revenue", r, 411),
		acct(4112, "4112", "Product Revenue", r, 411),

		acct(5, "5", "Expenses", x, 0),
		acct(51, "51", "Operating Expenses", x, 5),
		acct(511, "511", "Fleet", x, 51),
		acct(5111, "5111", "Fuel", x, 511),
		acct(5112, "5112", "Vehicle Maintenance", x, 511),
		acct(512, "512", "Administrative", x, 51),
		acct(5121, "5121", "Salaries", x, 512),
		acct(5122, "5122", "Office Supplies", x, 512),
		acct(5123, "5123", "Professional Services", x, 512),
	}
}
