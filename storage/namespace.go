////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

// Package storage keeps the small values of the thread tracker in the page's
// local storage.
package storage

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"gitlab.com/elixxir/wasm-utils/storage"
)

// rootNamespace prefixes every key written by the thread tracker so that keys
// owned by the chat page are never touched.
const rootNamespace = "threadkeeper"

const namespaceSeparator = "/"

// KeyValue is the part of local storage used to load and save values.
type KeyValue interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Namespace is a view of local storage whose keys all start with the name of
// the namespace.
type Namespace struct {
	ls     storage.LocalStorage
	prefix string
}

// NewNamespace returns the namespace with the given name in the page's local
// storage. An empty name returns the root namespace of the tracker.
func NewNamespace(name string) *Namespace {
	ns := newNamespace(storage.GetLocalStorage(), rootNamespace)
	if name == "" {
		return ns
	}
	return ns.Namespace(name)
}

func newNamespace(ls storage.LocalStorage, name string) *Namespace {
	return &Namespace{ls: ls, prefix: name + namespaceSeparator}
}

// Namespace returns the namespace with the given name nested in n.
func (n *Namespace) Namespace(name string) *Namespace {
	return newNamespace(n.ls, n.prefix+name)
}

// Get returns the value stored at the key. Returns os.ErrNotExist if the key
// does not exist.
func (n *Namespace) Get(key string) ([]byte, error) {
	return n.ls.Get(n.prefix + key)
}

// Set stores the value at the key. Returns an error if local storage refuses
// the value, such as when its quota is exceeded.
func (n *Namespace) Set(key string, value []byte) error {
	return errors.Wrapf(n.ls.Set(n.prefix+key, value),
		"localStorage: failed to set %q", n.prefix+key)
}

// RemoveItem removes the key. Does nothing if the key does not exist.
func (n *Namespace) RemoveItem(key string) {
	n.ls.RemoveItem(n.prefix + key)
}

// Clear removes every key of the namespace and returns how many were removed.
func (n *Namespace) Clear() int {
	return n.ls.ClearPrefix(n.prefix)
}

// Keys returns the keys of the namespace without the namespace prefix.
func (n *Namespace) Keys() []string {
	return lo.FilterMap(n.ls.Keys(), func(key string, _ int) (string, bool) {
		return strings.CutPrefix(key, n.prefix)
	})
}
