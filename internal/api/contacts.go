package api

import (
	"context"
	"net/http"
)

// ContactService groups the emergency contact endpoints
type ContactService struct {
	c *Client
}

// Contacts returns the emergency contact facade
func (c *Client) Contacts() *ContactService {
	return &ContactService{c: c}
}

// Contact is an emergency contact
type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// ContactUpdate carries a partial update; nil fields are left unchanged
type ContactUpdate struct {
	Name         *string `json:"name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
}

// Alert is a triggered emergency alert. The server attaches the last
// known location snapshot.
type Alert struct {
	ID          string         `json:"id"`
	TriggeredAt string         `json:"triggeredAt"`
	Location    *LocationPoint `json:"location,omitempty"`
	Notified    int            `json:"notified"`
}

// List returns all emergency contacts
func (s *ContactService) List(ctx context.Context) ([]Contact, error) {
	env, err := s.c.doWithRetry(ctx, http.MethodGet, "/emergency-contacts", nil, false)
	if err != nil {
		return nil, err
	}
	var contacts []Contact
	if err := env.Decode(&contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// Add creates an emergency contact. email and relationship may be empty.
func (s *ContactService) Add(ctx context.Context, name, phone, email, relationship string) (*Contact, error) {
	body := struct {
		Name         string `json:"name"`
		Phone        string `json:"phone"`
		Email        string `json:"email,omitempty"`
		Relationship string `json:"relationship,omitempty"`
	}{Name: name, Phone: phone, Email: email, Relationship: relationship}

	env, err := s.c.do(ctx, http.MethodPost, "/emergency-contacts", body, false)
	if err != nil {
		return nil, err
	}
	var contact Contact
	if err := env.Decode(&contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// Update applies a partial update to a contact
func (s *ContactService) Update(ctx context.Context, id string, update ContactUpdate) (*Contact, error) {
	env, err := s.c.do(ctx, http.MethodPut, "/emergency-contacts/"+id, update, false)
	if err != nil {
		return nil, err
	}
	var contact Contact
	if err := env.Decode(&contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// Delete removes a contact
func (s *ContactService) Delete(ctx context.Context, id string) error {
	env, err := s.c.do(ctx, http.MethodDelete, "/emergency-contacts/"+id, nil, false)
	if err != nil {
		return err
	}
	return env.Err()
}

// TriggerAlert fires an emergency alert. No body is posted; the server
// attaches the location snapshot.
func (s *ContactService) TriggerAlert(ctx context.Context) (*Alert, error) {
	env, err := s.c.do(ctx, http.MethodPost, "/emergency-contacts/alert", nil, false)
	if err != nil {
		return nil, err
	}
	var alert Alert
	if err := env.Decode(&alert); err != nil {
		return nil, err
	}
	return &alert, nil
}
