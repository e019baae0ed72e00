package crm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// InMemoryClient is a map-backed CRM client for tests and local development.
type InMemoryClient struct {
	mu       sync.Mutex
	nextID   int64
	contacts map[string]*Contact
	tags     map[int64]map[string]bool
	meta     map[int64]map[string]string
}

// NewInMemoryClient creates an empty in-memory CRM client.
func NewInMemoryClient() *InMemoryClient {
	return &InMemoryClient{
		nextID:   1,
		contacts: make(map[string]*Contact),
		tags:     make(map[int64]map[string]bool),
		meta:     make(map[int64]map[string]string),
	}
}

var _ Client = (*InMemoryClient)(nil)

// UpsertContact finds or creates a contact by email. Existing name
// fields are preserved; empty ones are filled from the arguments.
func (c *InMemoryClient) UpsertContact(_ context.Context, email, firstName, lastName string) (*Contact, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("crm: contact email cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	contact, ok := c.contacts[email]
	if !ok {
		contact = &Contact{ID: c.nextID, Email: email, FirstName: firstName, LastName: lastName}
		c.nextID++
		c.contacts[email] = contact
	} else {
		if contact.FirstName == "" && firstName != "" {
			contact.FirstName = firstName
		}
		if contact.LastName == "" && lastName != "" {
			contact.LastName = lastName
		}
	}

	copied := *contact
	return &copied, nil
}

// AttachTag adds a tag to the contact.
func (c *InMemoryClient) AttachTag(_ context.Context, contactID int64, tagSlug string) error {
	if tagSlug == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tags[contactID] == nil {
		c.tags[contactID] = make(map[string]bool)
	}
	c.tags[contactID][tagSlug] = true
	return nil
}

// DetachTag removes a tag from the contact.
func (c *InMemoryClient) DetachTag(_ context.Context, contactID int64, tagSlug string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tags[contactID], tagSlug)
	return nil
}

// GetMeta returns the stored meta value, or empty when absent.
func (c *InMemoryClient) GetMeta(_ context.Context, contactID int64, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta[contactID][key], nil
}

// SetMeta stores a meta value on the contact.
func (c *InMemoryClient) SetMeta(_ context.Context, contactID int64, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.meta[contactID] == nil {
		c.meta[contactID] = make(map[string]string)
	}
	c.meta[contactID][key] = value
	return nil
}

// HasTag reports whether the contact currently carries the tag.
func (c *InMemoryClient) HasTag(contactID int64, tagSlug string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tags[contactID][tagSlug]
}
