////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package storage

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// failingKV is a KeyValue that holds nothing and refuses every value, like
// local storage with an exhausted quota.
type failingKV struct{}

func (failingKV) Get(string) ([]byte, error) { return nil, os.ErrNotExist }
func (failingKV) Set(string, []byte) error {
	return errors.New("QuotaExceededError")
}

// Tests that checkAndStoreVersion initialises the version on first run and
// upgrades it on subsequent runs.
func Test_checkAndStoreVersion(t *testing.T) {
	ns := NewNamespace("versionTest")
	ns.Clear()
	defer ns.Clear()
	oldVer := "0.1"
	newVer := "1.0"

	if err := checkAndStoreVersion(oldVer, ns); err != nil {
		t.Errorf("checkAndStoreVersion error: %+v", err)
	}
	stored, err := ns.Get(semverKey)
	if err != nil {
		t.Errorf("Failed to get version from storage: %+v", err)
	}
	if string(stored) != oldVer {
		t.Errorf("Loaded version does not match expected."+
			"\nexpected: %s\nreceived: %s", oldVer, stored)
	}

	if err = checkAndStoreVersion(newVer, ns); err != nil {
		t.Errorf("checkAndStoreVersion error: %+v", err)
	}
	stored, err = ns.Get(semverKey)
	if err != nil {
		t.Errorf("Failed to get version from storage: %+v", err)
	}
	if string(stored) != newVer {
		t.Errorf("Loaded version does not match expected."+
			"\nexpected: %s\nreceived: %s", newVer, stored)
	}
}

// Tests that checkAndStoreVersion returns the error of a storage that refuses
// the version.
func Test_checkAndStoreVersion_SetError(t *testing.T) {
	require.Error(t, checkAndStoreVersion("1.0", failingKV{}))
}

// Tests that initOrLoadStoredSemver initialises the correct version on first
// run and returns the same version on subsequent runs.
func Test_initOrLoadStoredSemver(t *testing.T) {
	ns := NewNamespace("semverTest")
	ns.Clear()
	defer ns.Clear()
	key := "testKey"
	oldVersion := "0.1"

	loadedVersion, err := initOrLoadStoredSemver(key, oldVersion, ns)
	if err != nil {
		t.Errorf("Failed to intilaise version: %+v", err)
	}
	if loadedVersion != oldVersion {
		t.Errorf("Loaded version does not match expected."+
			"\nexpected: %s\nreceived: %s", oldVersion, loadedVersion)
	}

	loadedVersion, err = initOrLoadStoredSemver(key, "something", ns)
	if err != nil {
		t.Errorf("Failed to load version: %+v", err)
	}
	if loadedVersion != oldVersion {
		t.Errorf("Loaded version does not match expected."+
			"\nexpected: %s\nreceived: %s", oldVersion, loadedVersion)
	}
}
