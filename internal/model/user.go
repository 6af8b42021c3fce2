package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a user identifier; auth services send it as a number or a string
type ID string

// UnmarshalJSON accepts both 42 and "42"
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// Int returns the numeric form of the id, if it has one
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// User is the account record owned by the session
type User struct {
	ID        ID     `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Valid reports whether the record identifies someone
func (u *User) Valid() bool {
	return u != nil && (u.ID != "" || u.Username != "")
}

// DisplayName prefers the full name
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Clone returns an independent copy
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// ProfilePatch carries editable profile fields; nil means unchanged
type ProfilePatch struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// Apply merges the patch into u
func (p ProfilePatch) Apply(u *User) {
	if u == nil {
		return
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
}

// Empty reports whether the patch changes nothing
func (p ProfilePatch) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.Phone == nil
}
