package types

// Notifier delivers newly-detected updates to the configured channels.
type Notifier interface {
	// SendUpdates reports a batch of new updates. Implementations must not
	// block the check loop indefinitely.
	SendUpdates(records []UpdateRecord) error

	// Close flushes any queued messages and releases resources.
	Close()
}
