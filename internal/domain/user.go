package domain

import "time"

const RoleAdmin = "admin"

// User is read-only in this service: author identities are resolved from it
// when an aggregate is rehydrated, and the role gates comment deletion.
// Registration and credential management live in the identity service.
type User struct {
	UserID    string    `json:"id" dynamodbav:"user_id"`
	Username  string    `json:"username" dynamodbav:"username"`
	Role      string    `json:"role" dynamodbav:"role"`
	FirstName string    `json:"first_name" dynamodbav:"first_name"`
	LastName  string    `json:"last_name" dynamodbav:"last_name"`
	Avatar    string    `json:"avatar,omitempty" dynamodbav:"avatar"`
	Enable    int       `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Profile is the denormalized author view embedded in rehydrated aggregates.
type Profile struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Profile projects the public fields of a user.
func (u *User) Profile() Profile {
	return Profile{UserID: u.UserID, Username: u.Username, Avatar: u.Avatar}
}

// Enabled reports whether the account is active. Deactivated accounts keep
// their data but stop receiving targeted notifications.
func (u *User) Enabled() bool {
	return u.Enable == 1
}
