package domain

import "time"

// Claims is the decoded payload of a bearer token.
type Claims struct {
	SubjectID string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
