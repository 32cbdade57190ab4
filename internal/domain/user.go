package domain

// AuthNoLogin is the Moodle auth plugin that blocks every login.
const AuthNoLogin = "nologin"

// User mirrors a Moodle user record.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	FullName     string `json:"fullname"`
	Email        string `json:"email"`
	Department   string `json:"department,omitempty"`
	Institution  string `json:"institution,omitempty"`
	City         string `json:"city,omitempty"`
	Country      string `json:"country,omitempty"`
	Auth         string `json:"auth,omitempty"`
	Suspended    bool   `json:"suspended"`
	ProfileImage string `json:"profileimageurlsmall,omitempty"`
}

// CanLogin is false for suspended accounts and accounts on the nologin plugin.
func (u User) CanLogin() bool {
	return !u.Suspended && u.Auth != AuthNoLogin
}

// NewUser is what staff submit from the user creation form.
type NewUser struct {
	Username  string `json:"username" form:"username" validate:"required,max=100"`
	Password  string `json:"password" form:"password" validate:"required"`
	FirstName string `json:"firstname" form:"firstname" validate:"required,max=100"`
	LastName  string `json:"lastname" form:"lastname" validate:"required,max=100"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Auth      string `json:"auth,omitempty" form:"auth"`
}
