package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a customer or admin account. Secrets never leave the server.
type User struct {
	ID                  string     `gorm:"primaryKey;size:24"              json:"_id"       bson:"_id"`
	Name                string     `gorm:"size:255;not null"               json:"name"      bson:"name"`
	Email               string     `gorm:"size:191;uniqueIndex;not null"   json:"email"     bson:"email"`
	Phone               string     `gorm:"size:10;uniqueIndex;not null"    json:"phone"     bson:"phone"`
	Password            string     `gorm:"size:255;not null"               json:"-"         bson:"password"`
	Role                string     `gorm:"size:16;not null;default:user"   json:"role"      bson:"role"`
	RefreshToken        string     `gorm:"size:64;index"                   json:"-"         bson:"refreshToken,omitempty"`
	ResetPasswordToken  string     `gorm:"size:64;index"                   json:"-"         bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpire *time.Time `                                       json:"-"         bson:"resetPasswordExpire,omitempty"`
	CreatedAt           time.Time  `                                       json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time  `                                       json:"updatedAt" bson:"updatedAt"`
}

// IsAdmin reports whether the account holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Customer is the subset of a user attached to admin order views.
type Customer struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// AsCustomer projects u for admin listings.
func (u User) AsCustomer() *Customer {
	return &Customer{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}
