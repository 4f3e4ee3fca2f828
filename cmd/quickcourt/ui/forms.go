package ui

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"
)

const minPasswordLength = 6

// AdminInput is the account created by create-admin
type AdminInput struct {
	Email    string
	Name     string
	Password string
}

// ReviewInput is an approval decision made by review-venue
type ReviewInput struct {
	VenueID string
	Status  string
	Comment string
}

func ValidateEmail(s string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil || addr.Address != strings.TrimSpace(s) {
		return errors.New("a valid email address is required")
	}
	return nil
}

func ValidateName(s string) error {
	if len(strings.TrimSpace(s)) < 2 {
		return errors.New("name must be at least 2 characters")
	}
	return nil
}

func ValidatePassword(s string) error {
	if len(s) < minPasswordLength {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// Validate checks the fields the same way signup does
func (in AdminInput) Validate() error {
	return errors.Join(ValidateEmail(in.Email), ValidateName(in.Name), ValidatePassword(in.Password))
}

// RunAdminForm prompts for every field of in that is still empty
func RunAdminForm(in *AdminInput) error {
	var fields []huh.Field

	if in.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("admin@quickcourt.com").
			Value(&in.Email).
			Validate(ValidateEmail))
	}
	if in.Name == "" {
		fields = append(fields, huh.NewInput().
			Title("Full name").
			Value(&in.Name).
			Validate(ValidateName))
	}
	if in.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&in.Password).
			Validate(ValidatePassword))
	}

	if len(fields) == 0 {
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huh.ThemeCatppuccin()).
		Run()
}

// RunReviewForm prompts for the decision and comment when they were not
// passed as flags
func RunReviewForm(in *ReviewInput) error {
	var fields []huh.Field

	if in.Status == "" {
		fields = append(fields, huh.NewSelect[string]().
			Title("Decision").
			Options(
				huh.NewOption("Approve", "approved"),
				huh.NewOption("Reject", "rejected"),
			).
			Value(&in.Status))
	}
	if in.Comment == "" {
		fields = append(fields, huh.NewText().
			Title("Comment for the owner").
			Value(&in.Comment))
	}

	if len(fields) == 0 {
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huh.ThemeCatppuccin()).
		Run()
}
