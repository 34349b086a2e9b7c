// Package crm holds the customer records managed behind the customers:*
// permission gates.
package crm

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Customer is a company record. Optional columns come back as empty strings
// rather than pointers; the store maps nulls in one place.
type Customer struct {
	ID           uuid.UUID  `json:"id"`
	CompanyName  string     `json:"company_name"`
	Industry     string     `json:"industry,omitempty"`
	Website      string     `json:"website,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	AddressLine1 string     `json:"address_line1,omitempty"`
	AddressLine2 string     `json:"address_line2,omitempty"`
	City         string     `json:"city,omitempty"`
	State        string     `json:"state,omitempty"`
	PostalCode   string     `json:"postal_code,omitempty"`
	Country      string     `json:"country,omitempty"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Store persists customers.
type Store interface {
	Create(ctx context.Context, c *Customer) error
	Find(ctx context.Context, id uuid.UUID) (*Customer, error)
	List(ctx context.Context) ([]*Customer, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CustomerInput is the mutable surface of a customer.
type CustomerInput struct {
	CompanyName  string `json:"company_name"`
	Industry     string `json:"industry"`
	Website      string `json:"website"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
}

const defaultStatus = "active"

func (in CustomerInput) apply(c *Customer) {
	c.CompanyName = in.CompanyName
	c.Industry = in.Industry
	c.Website = in.Website
	c.Phone = in.Phone
	c.Email = in.Email
	c.AddressLine1 = in.AddressLine1
	c.AddressLine2 = in.AddressLine2
	c.City = in.City
	c.State = in.State
	c.PostalCode = in.PostalCode
	c.Country = in.Country
	c.Status = in.Status
	if c.Status == "" {
		c.Status = defaultStatus
	}
	c.Notes = in.Notes
}
