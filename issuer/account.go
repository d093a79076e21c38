// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package issuer

import (
	"fmt"
	"os"
	"time"

	"cloudeng.io/errors"
	"cloudeng.io/os/lockedfile"
	"golang.org/x/crypto/acme"
	"gopkg.in/yaml.v3"
)

// ErrNoAccount is returned by AccountFile.Load when no account has
// been stored yet.
var ErrNoAccount = errors.New("no stored account")

// Account records an ACME account registration so that subsequent
// invocations can reuse it rather than re-registering with the CA.
type Account struct {
	URI          string    `yaml:"uri"`
	Contact      []string  `yaml:"contact,omitempty"`
	DirectoryURL string    `yaml:"directory"`
	Registered   time.Time `yaml:"registered"`
}

// AccountFile stores an Account in a YAML file guarded by a file
// lock so that concurrent invocations do not corrupt it.
type AccountFile struct {
	filename string
	lock     *lockedfile.Mutex
}

// NewAccountFile returns an AccountFile backed by the supplied file.
func NewAccountFile(filename string) *AccountFile {
	return &AccountFile{
		filename: filename,
		lock:     lockedfile.MutexAt(filename + ".lock"),
	}
}

// Load returns the stored account, or ErrNoAccount if the file does
// not exist.
func (af *AccountFile) Load() (Account, error) {
	unlock, err := af.lock.Lock()
	if err != nil {
		return Account{}, fmt.Errorf("lock acquisition failed: %w", err)
	}
	defer unlock()
	data, err := os.ReadFile(af.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Account{}, errors.NewM(fmt.Errorf("%v: %w", af.filename, err), ErrNoAccount)
		}
		return Account{}, err
	}
	var account Account
	if err := yaml.Unmarshal(data, &account); err != nil {
		return Account{}, fmt.Errorf("failed to parse %v: %w", af.filename, err)
	}
	return account, nil
}

// Store writes the account, overwriting any previously stored one.
func (af *AccountFile) Store(account Account) error {
	unlock, err := af.lock.Lock()
	if err != nil {
		return fmt.Errorf("lock acquisition failed: %w", err)
	}
	defer unlock()
	data, err := yaml.Marshal(account)
	if err != nil {
		return err
	}
	return os.WriteFile(af.filename, data, 0600)
}

// NewAccount returns an Account recording the supplied registration.
func NewAccount(acct *acme.Account, directoryURL string) Account {
	return Account{
		URI:          acct.URI,
		Contact:      acct.Contact,
		DirectoryURL: directoryURL,
		Registered:   time.Now().UTC(),
	}
}
