package accounts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cleared-dev/ledgercore/internal/model"
)

// MaxDepth is the deepest level an account may sit at (roots are level 1).
const MaxDepth = 4

var (
	ErrDuplicateID    = errors.New("duplicate account id")
	ErrDuplicateCode  = errors.New("duplicate account code")
	ErrUnknownParent  = errors.New("unknown parent account")
	ErrTypeMismatch   = errors.New("account type differs from parent")
	ErrTooDeep        = errors.New("account tree too deep")
	ErrCycle          = errors.New("account tree has a cycle")
	ErrInvalidType    = errors.New("invalid account type")
	ErrNotFound       = errors.New("account not found")
	ErrHasChildren    = errors.New("account has child accounts")
	ErrHasPostings    = errors.New("account has postings")
	ErrInvalidAccount = errors.New("invalid account")
)

// Service provides concurrent-safe lookup over a validated chart of accounts.
type Service struct {
	mu       sync.RWMutex
	accounts []model.Account
	byID     map[int]model.Account
	byCode   map[string]int
	children map[int][]int
}

// NewService validates the tree and returns a Service over it.
func NewService(accounts []model.Account) (*Service, error) {
	s := &Service{}
	if err := s.reset(accounts); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNewService is NewService for fixtures known to be valid.
func MustNewService(accounts []model.Account) *Service {
	s, err := NewService(accounts)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Service) reset(accounts []model.Account) error {
	byID := make(map[int]model.Account, len(accounts))
	byCode := make(map[string]int, len(accounts))
	children := make(map[int][]int)

	for _, a := range accounts {
		if a.ID <= 0 {
			return fmt.Errorf("%w: id %d", ErrInvalidAccount, a.ID)
		}
		if a.Code == "" {
			return fmt.Errorf("%w: account %d has no code", ErrInvalidAccount, a.ID)
		}
		if !a.Type.Valid() {
			return fmt.Errorf("%w: account %d has type %q", ErrInvalidType, a.ID, a.Type)
		}
		if _, dup := byID[a.ID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateID, a.ID)
		}
		if other, dup := byCode[a.Code]; dup {
			return fmt.Errorf("%w: %q used by %d and %d", ErrDuplicateCode, a.Code, other, a.ID)
		}
		byID[a.ID] = a
		byCode[a.Code] = a.ID
	}

	for _, a := range accounts {
		if a.IsRoot() {
			continue
		}
		parent, ok := byID[a.ParentID]
		if !ok {
			return fmt.Errorf("%w: account %d references %d", ErrUnknownParent, a.ID, a.ParentID)
		}
		if parent.Type != a.Type {
			return fmt.Errorf("%w: account %d is %s, parent %d is %s", ErrTypeMismatch, a.ID, a.Type, parent.ID, parent.Type)
		}
		children[a.ParentID] = append(children[a.ParentID], a.ID)
	}

	for _, a := range accounts {
		depth := 1
		cur := a
		for !cur.IsRoot() {
			depth++
			if depth > len(accounts) {
				return fmt.Errorf("%w: through account %d", ErrCycle, a.ID)
			}
			cur = byID[cur.ParentID]
		}
		if depth > MaxDepth {
			return fmt.Errorf("%w: account %d is at level %d (max %d)", ErrTooDeep, a.ID, depth, MaxDepth)
		}
	}

	for _, ids := range children {
		sort.Ints(ids)
	}

	all := make([]model.Account, len(accounts))
	copy(all, accounts)

	s.accounts = all
	s.byID = byID
	s.byCode = byCode
	s.children = children
	return nil
}

// Load reads chart-of-accounts.csv from a repo root and returns a Service.
func Load(repoRoot string) (*Service, error) {
	path := filepath.Join(repoRoot, "accounts", "chart-of-accounts.csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return NewService(accts)
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Get returns an account by ID.
func (s *Service) Get(id int) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id int) bool {
	_, ok := s.Get(id)
	return ok
}

// ByCode returns the account with the given human code.
func (s *Service) ByCode(code string) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return model.Account{}, false
	}
	return s.byID[id], true
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(accountType model.AccountType) []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Account
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// IsLeaf reports whether id exists and has no children.
func (s *Service) IsLeaf(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok && len(s.children[id]) == 0
}

// Leaves returns every account without children, in chart order.
func (s *Service) Leaves() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Account
	for _, a := range s.accounts {
		if len(s.children[a.ID]) == 0 {
			result = append(result, a)
		}
	}
	return result
}

// Children returns the direct children of id ordered by ID.
func (s *Service) Children(id int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.children[id]...)
}

// Subtree returns id followed by all of its descendants, depth first.
func (s *Service) Subtree(id int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byID[id]; !ok {
		return nil
	}
	var out []int
	var walk func(int)
	walk = func(n int) {
		out = append(out, n)
		for _, c := range s.children[n] {
			walk(c)
		}
	}
	walk(id)
	return out
}

// Ancestors returns the parents of id, nearest first.
func (s *Service) Ancestors(id int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	cur, ok := s.byID[id]
	for ok && !cur.IsRoot() {
		out = append(out, cur.ParentID)
		cur, ok = s.byID[cur.ParentID]
	}
	return out
}

// Add inserts an account, re-validating the whole tree.
func (s *Service) Add(acct model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(append([]model.Account(nil), s.accounts...), acct)
	return s.reset(next)
}

// Remove deletes an account that has neither children nor postings.
func (s *Service) Remove(id int, hasPostings bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if len(s.children[id]) > 0 {
		return fmt.Errorf("%w: %d", ErrHasChildren, id)
	}
	if hasPostings {
		return fmt.Errorf("%w: %d", ErrHasPostings, id)
	}
	next := make([]model.Account, 0, len(s.accounts)-1)
	for _, a := range s.accounts {
		if a.ID != id {
			next = append(next, a)
		}
	}
	return s.reset(next)
}

// Save writes the chart of accounts to accounts/chart-of-accounts.csv.
func (s *Service) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, "accounts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	path := filepath.Join(dir, "chart-of-accounts.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, s.All()); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
