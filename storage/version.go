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

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// SEMVER is the current semantic version of the thread tracker.
const SEMVER = "0.3.0"

// semverKey is the key of the stored version.
const semverKey = "semanticVersion"

// CheckAndStoreVersion checks that the stored tracker version matches the
// current version and if not, upgrades it.
//
// On first load, only the current version is stored.
func CheckAndStoreVersion() error {
	return checkAndStoreVersion(SEMVER, NewNamespace(""))
}

func checkAndStoreVersion(currentVer string, kv KeyValue) error {
	storedVer, err := initOrLoadStoredSemver(semverKey, currentVer, kv)
	if err != nil {
		return err
	}

	if storedVer != currentVer {
		jww.INFO.Printf("Thread tracker out of date; upgrading version: "+
			"v%s → v%s", storedVer, currentVer)
	} else {
		jww.INFO.Printf("Thread tracker version is current: v%s", storedVer)
	}

	// Upgrade path code goes here

	return kv.Set(semverKey, []byte(currentVer))
}

// initOrLoadStoredSemver returns the semantic version stored at the key. If no
// version is stored, then the current version is stored and returned.
func initOrLoadStoredSemver(
	key, currentVersion string, kv KeyValue) (string, error) {
	storedVersion, err := kv.Get(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Save the current version if this is the first run
			jww.INFO.Printf("Initialising %s to v%s", key, currentVersion)
			if err = kv.Set(key, []byte(currentVersion)); err != nil {
				return "", err
			}
			return currentVersion, nil
		}
		// If the item exists, but cannot be loaded, return an error
		return "", errors.Errorf(
			"could not load %s from storage: %+v", key, err)
	}

	return string(storedVersion), nil
}
