package validation

import "strings"

// SignInForm is posted by the login page.
type SignInForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// SignInMessages are the sign-in failure texts.
var SignInMessages = Messages{
	"*.required": "Email and password are required",
}

// SignUpForm is posted by the signup page.
type SignUpForm struct {
	Email       string `form:"email" validate:"required,email"`
	Password    string `form:"password" validate:"required,min=6"`
	DisplayName string `form:"display_name" validate:"required,max=80"`
}

// SignUpMessages are the sign-up failure texts.
var SignUpMessages = Messages{
	"*.required":      "All fields are required",
	"Email.email":     "Invalid email address",
	"Password.min":    "Password must be at least 6 characters",
	"DisplayName.max": "Display name is too long",
}

// ProfileForm is posted by the profile editor.
type ProfileForm struct {
	DisplayName string `form:"display_name" validate:"required,max=80"`
	Bio         string `form:"bio" validate:"max=500"`
}

// ProfileMessages are the profile editor failure texts.
var ProfileMessages = Messages{
	"DisplayName.required": "Display name is required",
	"DisplayName.max":      "Display name is too long",
	"Bio.max":              "Bio must be 500 characters or fewer",
}

// Normalize trims surrounding whitespace from every text field except
// passwords.
func (f *SignInForm) Normalize() { f.Email = strings.TrimSpace(f.Email) }

func (f *SignUpForm) Normalize() {
	f.Email = strings.TrimSpace(f.Email)
	f.DisplayName = strings.TrimSpace(f.DisplayName)
}

func (f *ProfileForm) Normalize() {
	f.DisplayName = strings.TrimSpace(f.DisplayName)
	f.Bio = strings.TrimSpace(f.Bio)
}
