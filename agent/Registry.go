package agent

import (
	"fmt"
	"reflect"
	"sync"
)

// Registered policy types. Once a PolicyType has been registered, a
// TypedPolicyConfig of that type can be deserialized.
//
// No PolicyTypes are registered with this package upon initialization.
// Packages implementing policies register their own types to avoid
// circular imports.
var (
	registryMu      sync.RWMutex
	registeredTypes = make(map[PolicyType]reflect.Type)
)

// Register registers a PolicyType with a concrete PolicyConfig type so
// that TypedPolicyConfigs of type t are deserialized into that concrete
// type. The config must be a struct value, not a pointer.
func Register(t PolicyType, config PolicyConfig) {
	ty := reflect.TypeOf(config)
	if ty.Kind() == reflect.Ptr {
		panic(fmt.Sprintf("register: config for %v must not be a pointer", t))
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	registeredTypes[t] = ty
}

// Registered returns whether t has been registered
func Registered(t PolicyType) bool {
	_, ok := lookup(t)
	return ok
}

// newConfig returns a pointer to a new zero config of type t
func newConfig(t PolicyType) (interface{}, error) {
	ty, ok := lookup(t)
	if !ok {
		return nil, fmt.Errorf("no policy registered with type %q", t)
	}
	return reflect.New(ty).Interface(), nil
}

func lookup(t PolicyType) (reflect.Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ty, ok := registeredTypes[t]
	return ty, ok
}
