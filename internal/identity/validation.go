package identity

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	minPasswordLength = 6
	minUsernameLength = 3
)

// same shape the browser form validator accepts
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterForm struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidationError maps form fields to the reason they were rejected.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("invalid form fields: %s", strings.Join(fields, ", "))
}

func ValidateLogin(form LoginForm) error {
	fields := map[string]string{}
	validateEmail(fields, form.Email)
	validatePassword(fields, form.Password)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func ValidateRegister(form RegisterForm) error {
	fields := map[string]string{}
	switch {
	case form.Username == "":
		fields["username"] = "required"
	case len([]rune(form.Username)) < minUsernameLength:
		fields["username"] = fmt.Sprintf("minimum length is %d", minUsernameLength)
	}
	validateEmail(fields, form.Email)
	validatePassword(fields, form.Password)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateEmail(fields map[string]string, email string) {
	switch {
	case email == "":
		fields["email"] = "required"
	case !emailRegex.MatchString(email):
		fields["email"] = "invalid email"
	}
}

func validatePassword(fields map[string]string, password string) {
	switch {
	case password == "":
		fields["password"] = "required"
	case len([]rune(password)) < minPasswordLength:
		fields["password"] = fmt.Sprintf("minimum length is %d", minPasswordLength)
	}
}
