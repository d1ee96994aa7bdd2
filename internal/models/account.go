package models

import "time"

// Account is a staff profile (Owner or Employee) as served by the upstream API
type Account struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar"`
}

// Guest is a table-bound visitor created on guest login.
// TableNumber is nil when the table has been removed.
type Guest struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	TableNumber *int64    `json:"tableNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
