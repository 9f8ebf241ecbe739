package domain

import "time"

type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	NationalID string    `json:"national_id"`
	Address    string    `json:"address"`
	Phone      *string   `json:"phone,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserChanges carries the fields of a partial user update. Nil means "leave as is".
type UserChanges struct {
	Name       *string `json:"name,omitempty"`
	NationalID *string `json:"nationalId,omitempty"`
	Address    *string `json:"address,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (c UserChanges) IsEmpty() bool {
	return c.Name == nil && c.NationalID == nil && c.Address == nil &&
		c.Phone == nil && c.Email == nil && c.Notes == nil
}

// Apply copies every supplied field onto u.
func (c UserChanges) Apply(u *User) {
	if c.Name != nil {
		u.Name = *c.Name
	}
	if c.NationalID != nil {
		u.NationalID = *c.NationalID
	}
	if c.Address != nil {
		u.Address = *c.Address
	}
	if c.Phone != nil {
		u.Phone = c.Phone
	}
	if c.Email != nil {
		u.Email = c.Email
	}
	if c.Notes != nil {
		u.Notes = c.Notes
	}
}
