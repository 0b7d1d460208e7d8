package connectivity

import (
	"fmt"
	"strconv"

	"github.com/hidraeco/gatewayd/kv"
	"github.com/hidraeco/gatewayd/wifi"
)

const countKey = "count"

type credentialField string

const (
	fieldSSID     credentialField = "ssid"
	fieldPassword credentialField = "pass"
)

// credentialKey addresses one field of the credential stored at index.
type credentialKey struct {
	field credentialField
	index int
}

func (k credentialKey) String() string {
	return string(k.field) + strconv.Itoa(k.index)
}

func (k credentialKey) validate() error {
	if k.field != fieldSSID && k.field != fieldPassword {
		return fmt.Errorf("unknown credential field %q: %w", k.field, kv.ErrInvalidKey)
	}
	if k.index < 0 {
		return fmt.Errorf("negative credential index %d: %w", k.index, kv.ErrInvalidKey)
	}
	return nil
}

// SavedCredential is a remembered network together with its store index.
type SavedCredential struct {
	Index    int
	SSID     string
	Password string
}

// Credential converts to the radio's credential type.
func (c SavedCredential) Credential() wifi.Credential {
	return wifi.Credential{SSID: c.SSID, Password: c.Password}
}

// CredentialStore is the durable, positionally indexed list of remembered
// networks. Entries live at indices 0..count-1 with no holes after any
// successful mutation. Duplicate SSIDs are allowed.
type CredentialStore struct {
	store kv.Store
}

// NewCredentialStore uses store as-is; namespacing is the caller's job.
func NewCredentialStore(store kv.Store) *CredentialStore {
	return &CredentialStore{store: store}
}

// Count returns the number of stored entries.
func (c *CredentialStore) Count() (int, error) {
	v, ok, err := c.store.Get(countKey)
	if err != nil {
		return 0, fmt.Errorf("could not read %s: %w: %w", countKey, ErrPersistence, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("corrupt %s %q: %w", countKey, v, ErrPersistence)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// Add appends a credential at index count.
func (c *CredentialStore) Add(ssid string, password string) error {
	if ssid == "" {
		return fmt.Errorf("empty ssid: %w", ErrInvalidCredential)
	}

	count, err := c.Count()
	if err != nil {
		return err
	}
	if err := c.put(credentialKey{fieldSSID, count}, ssid); err != nil {
		return err
	}
	if err := c.put(credentialKey{fieldPassword, count}, password); err != nil {
		return err
	}
	return c.setCount(count + 1)
}

// List returns all entries in index order. Slots with an empty SSID are
// treated as holes left by corrupted storage and skipped.
func (c *CredentialStore) List() ([]SavedCredential, error) {
	count, err := c.Count()
	if err != nil {
		return nil, err
	}

	list := make([]SavedCredential, 0, count)
	for i := 0; i < count; i++ {
		ssid, err := c.get(credentialKey{fieldSSID, i})
		if err != nil {
			return nil, err
		}
		if ssid == "" {
			continue
		}
		password, err := c.get(credentialKey{fieldPassword, i})
		if err != nil {
			return nil, err
		}
		list = append(list, SavedCredential{Index: i, SSID: ssid, Password: password})
	}
	return list, nil
}

// RemoveAt deletes the entry at index and shifts later entries down by one.
// An index outside [0, count) is a no-op.
func (c *CredentialStore) RemoveAt(index int) error {
	count, err := c.Count()
	if err != nil {
		return err
	}
	if index < 0 || index >= count {
		return nil
	}

	for i := index; i < count-1; i++ {
		for _, field := range []credentialField{fieldSSID, fieldPassword} {
			v, err := c.get(credentialKey{field, i + 1})
			if err != nil {
				return err
			}
			if err := c.put(credentialKey{field, i}, v); err != nil {
				return err
			}
		}
	}

	last := count - 1
	if err := c.remove(credentialKey{fieldSSID, last}); err != nil {
		return err
	}
	if err := c.remove(credentialKey{fieldPassword, last}); err != nil {
		return err
	}
	return c.setCount(last)
}

// Clear deletes every entry and resets count to zero.
func (c *CredentialStore) Clear() error {
	count, err := c.Count()
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if err := c.remove(credentialKey{fieldSSID, i}); err != nil {
			return err
		}
		if err := c.remove(credentialKey{fieldPassword, i}); err != nil {
			return err
		}
	}
	return c.setCount(0)
}

func (c *CredentialStore) setCount(n int) error {
	if err := c.store.Put(countKey, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("could not write %s: %w: %w", countKey, ErrPersistence, err)
	}
	return nil
}

func (c *CredentialStore) get(k credentialKey) (string, error) {
	if err := k.validate(); err != nil {
		return "", err
	}
	v, _, err := c.store.Get(k.String())
	if err != nil {
		return "", fmt.Errorf("could not read %s: %w: %w", k, ErrPersistence, err)
	}
	return v, nil
}

func (c *CredentialStore) put(k credentialKey, value string) error {
	if err := k.validate(); err != nil {
		return err
	}
	if err := c.store.Put(k.String(), value); err != nil {
		return fmt.Errorf("could not write %s: %w: %w", k, ErrPersistence, err)
	}
	return nil
}

func (c *CredentialStore) remove(k credentialKey) error {
	if err := k.validate(); err != nil {
		return err
	}
	if err := c.store.Remove(k.String()); err != nil {
		return fmt.Errorf("could not remove %s: %w: %w", k, ErrPersistence, err)
	}
	return nil
}
