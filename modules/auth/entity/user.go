package entity

import (
	"chatcal/core/entity"
)

// User is an account established through Google sign-in. GoogleSub is the
// provider's stable subject identifier; email may change across sign-ins.
type User struct {
	entity.BaseEntity
	GoogleSub string `db:"google_sub" json:"google_sub"`
	Email     string `db:"email" json:"email"`
	Name      string `db:"name" json:"name"`
	Picture   string `db:"picture" json:"picture,omitempty"`
}
