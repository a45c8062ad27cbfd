////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package tracker

import (
	"encoding/json"

	"github.com/pkg/errors"

	"gitlab.com/threadkeeper/threadkeeper-wasm/interceptor"
	"gitlab.com/threadkeeper/threadkeeper-wasm/reconciler"
	"gitlab.com/threadkeeper/threadkeeper-wasm/store"
)

// Params are the parameters of every component of the [Tracker].
type Params struct {
	Store       store.Params       `json:"store"`
	Reconciler  reconciler.Params  `json:"reconciler"`
	Interceptor interceptor.Params `json:"interceptor"`

	// EventLogging prints every dispatched event at DEBUG level.
	EventLogging bool `json:"eventLogging"`
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		Store:       store.DefaultParams(),
		Reconciler:  reconciler.DefaultParams(),
		Interceptor: interceptor.DefaultParams(),
	}
}

// ParamsFromJSON unmarshals params on top of the defaults, so that a partial
// JSON object only overrides the fields it contains.
func ParamsFromJSON(data []byte) (Params, error) {
	p := DefaultParams()
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Params{}, errors.Wrap(err, "failed to unmarshal tracker params")
	}
	return p, p.validate()
}

func (p Params) validate() error {
	switch {
	case p.Store.MaxChannels < 1:
		return errors.Errorf("store max channels must be positive, got %d",
			p.Store.MaxChannels)
	case p.Reconciler.DebounceWindow < 0:
		return errors.Errorf("debounce window must not be negative, got %s",
			p.Reconciler.DebounceWindow)
	case p.Reconciler.VerifyAttempts < 1:
		return errors.Errorf("verify attempts must be positive, got %d",
			p.Reconciler.VerifyAttempts)
	case p.Interceptor.APIHost == "" || p.Interceptor.SocketHost == "":
		return errors.New("interceptor hosts must not be empty")
	case p.Interceptor.ThreadInfoParam == "":
		return errors.New("thread info parameter must not be empty")
	}
	return nil
}
