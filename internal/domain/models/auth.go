package models

import "github.com/golang-jwt/jwt/v5"

// Claims are the JWT claims issued by the identity provider.
// The subject is the user id; department and role are custom claims.
type Claims struct {
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request.
// The zero value is the anonymous principal.
type Principal struct {
	UserID     string
	Department string
	Role       string
}

// Anonymous reports whether the request carried no verified identity.
func (p Principal) Anonymous() bool { return p.UserID == "" }
