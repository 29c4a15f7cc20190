package accounts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/ledgercore/internal/model"
)

// Header lists the columns WriteAccounts emits, in order.
var Header = []string{"account_id", "code", "account_name", "account_type", "parent_id", "active", "description"}

// columns maps a column name to its position in a row; -1 when absent.
type columns struct {
	id, code, name, typ, parent, active, desc int
	width                                     int
}

var canonical = columns{id: 0, code: 1, name: 2, typ: 3, parent: 4, active: 5, desc: 6, width: 7}

// newColumns locates columns by header name, so charts exported by other
// tools load as long as id, name and type are present. A missing code
// falls back to the ID and a missing active column means active.
func newColumns(header []string) (columns, error) {
	c := columns{id: -1, code: -1, name: -1, typ: -1, parent: -1, active: -1, desc: -1, width: len(header)}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "account_id", "id":
			c.id = i
		case "code", "account_code":
			c.code = i
		case "account_name", "name":
			c.name = i
		case "account_type", "type":
			c.typ = i
		case "parent_id", "parent":
			c.parent = i
		case "active":
			c.active = i
		case "description":
			c.desc = i
		}
	}
	var missing []string
	if c.id < 0 {
		missing = append(missing, "account_id")
	}
	if c.name < 0 {
		missing = append(missing, "account_name")
	}
	if c.typ < 0 {
		missing = append(missing, "account_type")
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("accounts CSV header is missing %s", strings.Join(missing, ", "))
	}
	return c, nil
}

func (c columns) get(record []string, i int) string {
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ReadAccounts reads a chart of accounts CSV with a header row.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	cols, err := newColumns(header)
	if err != nil {
		return nil, err
	}

	var accounts []model.Account
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return accounts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading accounts CSV: %w", err)
		}
		acct, err := cols.account(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		accounts = append(accounts, acct)
	}
}

// WriteAccounts writes the chart in the Header layout.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a row in the Header layout.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, canonical.width)
	row[canonical.id] = strconv.Itoa(acct.ID)
	row[canonical.code] = acct.Code
	row[canonical.name] = acct.Name
	row[canonical.typ] = string(acct.Type)
	if acct.ParentID != 0 {
		row[canonical.parent] = strconv.Itoa(acct.ParentID)
	}
	row[canonical.active] = strconv.FormatBool(acct.Active)
	row[canonical.desc] = acct.Description
	return row
}

// UnmarshalAccount converts a row in the Header layout to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	return canonical.account(record)
}

func (c columns) account(record []string) (model.Account, error) {
	if len(record) != c.width {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", c.width, len(record))
	}

	id, err := strconv.Atoi(c.get(record, c.id))
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing account_id %q: %w", c.get(record, c.id), err)
	}

	var parentID int
	if p := c.get(record, c.parent); p != "" {
		if parentID, err = strconv.Atoi(p); err != nil {
			return model.Account{}, fmt.Errorf("parsing parent_id %q: %w", p, err)
		}
	}

	active := true
	if a := c.get(record, c.active); a != "" {
		if active, err = strconv.ParseBool(a); err != nil {
			return model.Account{}, fmt.Errorf("parsing active %q: %w", a, err)
		}
	}

	code := c.get(record, c.code)
	if code == "" {
		code = strconv.Itoa(id)
	}

	return model.Account{
		ID:          id,
		Code:        code,
		Name:        c.get(record, c.name),
		Type:        model.AccountType(strings.ToLower(c.get(record, c.typ))),
		ParentID:    parentID,
		Active:      active,
		Description: c.get(record, c.desc),
	}, nil
}
