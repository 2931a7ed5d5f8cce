package venue

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// Accounts is the set of named trading accounts and the one currently
// selected. Selection changes are picked up by the next session.
type Accounts struct {
	mu       sync.RWMutex
	profiles map[string]domain.Credentials
	selected string
}

// NewAccounts validates that selected names one of profiles.
func NewAccounts(profiles map[string]domain.Credentials, selected string) (*Accounts, error) {
	a := &Accounts{profiles: make(map[string]domain.Credentials, len(profiles))}
	for k, v := range profiles {
		a.profiles[k] = v
	}
	if err := a.Select(selected); err != nil {
		return nil, err
	}
	return a, nil
}

// Select makes key the active account.
func (a *Accounts) Select(key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.profiles[key]; !ok {
		return fmt.Errorf("venue: select account %q: %w", key, domain.ErrUnknownAccount)
	}
	a.selected = key
	return nil
}

// Selected returns the active account key.
func (a *Accounts) Selected() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selected
}

// Keys returns the configured account keys in sorted order.
func (a *Accounts) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.profiles))
	for k := range a.profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Credentials returns the active account's credentials. It satisfies
// CredentialsFunc.
func (a *Accounts) Credentials() (domain.Credentials, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.profiles[a.selected]
	if !ok {
		return domain.Credentials{}, fmt.Errorf("venue: account %q: %w", a.selected, domain.ErrNoCredentials)
	}
	return c, nil
}
