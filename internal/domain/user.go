package domain

import "time"

type UserStatus string

const (
	UserStatusOnline  UserStatus = "ONLINE"
	UserStatusOffline UserStatus = "OFFLINE"
)

// User represents a registered user of the system.
//
// Name doubles as the login secret: login compares the submitted name against
// the stored one verbatim. The API contract was built around this credential
// model, so it is preserved rather than replaced with a hashed password.
type User struct {
	ID           int64
	Name         string
	Username     string
	Token        string
	Status       UserStatus
	CreationDate time.Time
	BirthDate    *time.Time
}
