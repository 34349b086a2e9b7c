package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"habb.tech/allo/internal/auth"
	"habb.tech/allo/internal/crm"
)

// CustomerStore implements crm.Store over PostgreSQL.
type CustomerStore struct{ db *sql.DB }

var _ crm.Store = (*CustomerStore)(nil)

func NewCustomerStore(s *Store) *CustomerStore { return &CustomerStore{db: s.db} }

const customerColumns = `id, company_name, industry, website, phone, email,
	address_line1, address_line2, city, state, postal_code, country,
	status, notes, created_by, created_at, updated_at`

func scanCustomer(row rowScanner) (*crm.Customer, error) {
	var (
		c                                          crm.Customer
		industry, website, phone, email            sql.NullString
		line1, line2, city, state, postal, country sql.NullString
		notes                                      sql.NullString
		createdBy                                  sql.Null[uuid.UUID]
	)
	err := row.Scan(&c.ID, &c.CompanyName, &industry, &website, &phone, &email,
		&line1, &line2, &city, &state, &postal, &country,
		&c.Status, &notes, &createdBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Industry = industry.String
	c.Website = website.String
	c.Phone = phone.String
	c.Email = email.String
	c.AddressLine1 = line1.String
	c.AddressLine2 = line2.String
	c.City = city.String
	c.State = state.String
	c.PostalCode = postal.String
	c.Country = country.String
	c.Notes = notes.String
	if createdBy.Valid {
		id := createdBy.V
		c.CreatedBy = &id
	}
	return &c, nil
}

func (s *CustomerStore) Create(ctx context.Context, c *crm.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into customers (id, company_name, industry, website, phone, email,
			address_line1, address_line2, city, state, postal_code, country,
			status, notes, created_by)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		returning created_at, updated_at
	`, c.ID, c.CompanyName, nullIfEmpty(c.Industry), nullIfEmpty(c.Website),
		nullIfEmpty(c.Phone), nullIfEmpty(c.Email), nullIfEmpty(c.AddressLine1),
		nullIfEmpty(c.AddressLine2), nullIfEmpty(c.City), nullIfEmpty(c.State),
		nullIfEmpty(c.PostalCode), nullIfEmpty(c.Country), c.Status,
		nullIfEmpty(c.Notes), c.CreatedBy)
	return row.Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (s *CustomerStore) Find(ctx context.Context, id uuid.UUID) (*crm.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+customerColumns+` from customers where id = $1`, id)
	return scanCustomer(row)
}

func (s *CustomerStore) List(ctx context.Context) ([]*crm.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+customerColumns+` from customers order by company_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*crm.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *CustomerStore) Update(ctx context.Context, c *crm.Customer) error {
	res, err := s.db.ExecContext(ctx, `
		update customers
		set company_name = $1, industry = $2, website = $3, phone = $4, email = $5,
			address_line1 = $6, address_line2 = $7, city = $8, state = $9,
			postal_code = $10, country = $11, status = $12, notes = $13,
			updated_at = now()
		where id = $14
	`, c.CompanyName, nullIfEmpty(c.Industry), nullIfEmpty(c.Website),
		nullIfEmpty(c.Phone), nullIfEmpty(c.Email), nullIfEmpty(c.AddressLine1),
		nullIfEmpty(c.AddressLine2), nullIfEmpty(c.City), nullIfEmpty(c.State),
		nullIfEmpty(c.PostalCode), nullIfEmpty(c.Country), c.Status,
		nullIfEmpty(c.Notes), c.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *CustomerStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `delete from customers where id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
