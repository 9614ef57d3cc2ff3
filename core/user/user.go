package user

import (
	"encoding/json"
	"strings"

	"github.com/thespaceapp/marketplace/core/claims"
)

// User is a record from the external user directory. The directory is a
// black box: fields are taken as-is beyond presence checks, and ids arrive
// either as strings or as numbers depending on the backend.
type User struct {
	ID           string
	Name         string
	Email        string
	AccountType  string
	Role         string
	Tier         string
	PasswordHash string
}

type wireUser struct {
	ID           string      `json:"id"`
	UserID       json.Number `json:"user_id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	AccountType  string      `json:"account_type"`
	Role         string      `json:"role"`
	Tier         string      `json:"tier"`
	PasswordHash string      `json:"password_hash"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	var w wireUser
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id := w.ID
	if id == "" {
		id = w.UserID.String()
	}

	*u = User{
		ID:           id,
		Name:         w.Name,
		Email:        w.Email,
		AccountType:  w.AccountType,
		Role:         w.Role,
		Tier:         w.Tier,
		PasswordHash: w.PasswordHash,
	}
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		AccountType: u.AccountType,
		Role:        u.Role,
		Tier:        u.Tier,
	})
}

// NormalizedRole maps the directory's mixed account_type/role spelling onto
// the roles the service understands.
func (u User) NormalizedRole() string {
	role := u.Role
	if role == "" {
		role = u.AccountType
	}

	switch strings.ToLower(strings.TrimSpace(role)) {
	case "seller":
		return claims.RoleSeller
	case "influencer":
		return claims.RoleInfluencer
	case "admin":
		return claims.RoleAdmin
	default:
		return claims.RoleBuyer
	}
}

func (u User) IsSeller() bool {
	return u.NormalizedRole() == claims.RoleSeller
}
