package notification

import (
	"fmt"
	"sync"
)

var (
	instance *Manager
	once     sync.Once
	mu       sync.RWMutex
)

// Initialize sets up the global notification manager instance. Delivery
// callbacks resolve the manager lazily through GetService, which avoids a
// hard initialization ordering between dispatch and notification.
func Initialize(manager *Manager) {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		instance = manager
	})
}

// GetService returns the global notification manager, or nil if not
// initialized.
func GetService() *Manager {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// SetServiceForTesting allows setting a custom manager for testing only.
// It returns an error if the manager is already initialized.
func SetServiceForTesting(manager *Manager) error {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return fmt.Errorf("notification manager already initialized")
	}
	instance = manager
	return nil
}

// MustGetService returns the manager or panics if not initialized.
func MustGetService() *Manager {
	manager := GetService()
	if manager == nil {
		panic("notification manager not initialized")
	}
	return manager
}
