package storage

import "errors"

// ErrKeyNotFound is returned by Get when no value is stored under the key.
var ErrKeyNotFound = errors.New("key not found")

// KV is the device-local key-value storage behind the action queue and
// the session cache: string-keyed JSON blobs, no transactions, survives
// process restarts.
type KV interface {
	// Get retrieves the value stored under key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key string) error
}
