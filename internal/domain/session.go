package domain

// Session is the client session kept for one signed-in browser.
//
// Password is the plaintext the user typed at login. It is only used to
// re-submit Moodle's own login form when the one-time login URL cannot be
// obtained.
type Session struct {
	UserID          int64  `json:"id"`
	Username        string `json:"username"`
	FullName        string `json:"fullname"`
	FirstName       string `json:"firstname,omitempty"`
	LastName        string `json:"lastname,omitempty"`
	Email           string `json:"email"`
	ProfileImage    string `json:"profileImage,omitempty"`
	Password        string `json:"password,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// NewSession builds the session for a user that passed the login checks.
func NewSession(u User, password string) Session {
	return Session{
		UserID:          u.ID,
		Username:        u.Username,
		FullName:        u.FullName,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		ProfileImage:    u.ProfileImage,
		Password:        password,
		IsAuthenticated: true,
	}
}

// Public returns a copy safe to hand back to the browser.
func (s Session) Public() Session {
	s.Password = ""
	return s
}
