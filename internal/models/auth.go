package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access token payload issued by the identity provider.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Role        UserRole `json:"role"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	ClassID     string   `json:"class_id,omitempty"`
	ClassIDs    []string `json:"class_ids,omitempty"`
	ChildrenIDs []string `json:"children_ids,omitempty"`
	jwt.RegisteredClaims
}

// Session converts the claims into the caller identity.
func (c *JWTClaims) Session() Session {
	return Session{
		UserID:      c.UserID,
		Name:        c.FullName,
		Email:       c.Email,
		Role:        c.Role,
		ClassID:     c.ClassID,
		ClassIDs:    c.ClassIDs,
		ChildrenIDs: c.ChildrenIDs,
	}
}
