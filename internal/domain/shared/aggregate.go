package shared

import "gorm.io/gorm"

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	LoadedVersion() int
	SyncLoadedVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots.
// The Version field drives optimistic locking: every state change increments
// it, and repositories refuse to persist an aggregate whose stored version
// no longer matches the one it was loaded with.
type BaseAggregateRoot struct {
	BaseEntity
	Version       int           `gorm:"not null;default:1"`
	loadedVersion int           `gorm:"-"`
	domainEvents  []DomainEvent `gorm:"-"`
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// LoadedVersion returns the version the aggregate carried when it was last
// loaded or persisted. Lock checks compare against this value, not against
// Version, since one transaction may apply several mutations and each one
// bumps Version.
func (a *BaseAggregateRoot) LoadedVersion() int {
	return a.loadedVersion
}

// SyncLoadedVersion marks the current version as the persisted one
func (a *BaseAggregateRoot) SyncLoadedVersion() {
	a.loadedVersion = a.Version
}

// AfterFind captures the stored version on every load
func (a *BaseAggregateRoot) AfterFind(*gorm.DB) error {
	a.SyncLoadedVersion()
	return nil
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:    NewBaseEntity(),
		Version:       1,
		loadedVersion: 1,
		domainEvents:  make([]DomainEvent, 0),
	}
}
