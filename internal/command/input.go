package command

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

type CreateInput struct {
	Title       string `json:"title" yaml:"title"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
	Public      bool   `json:"public" yaml:"public"`
	Favorite    bool   `json:"favorite" yaml:"favorite"`
	Rating      *int   `json:"rating" yaml:"rating"`
}

// UpdateInput is a partial update: nil fields are left untouched.
type UpdateInput struct {
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
	Public      *bool   `json:"public"`
	Favorite    *bool   `json:"favorite"`
	Rating      *int    `json:"rating"`
}

func (in CreateInput) validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if err := validateURL(in.URL); err != nil {
		return err
	}
	if in.Rating != nil {
		return ValidateRating(*in.Rating)
	}
	return nil
}

func (in UpdateInput) validate() error {
	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return err
		}
	}
	if in.URL != nil {
		if err := validateURL(*in.URL); err != nil {
			return err
		}
	}
	if in.Rating != nil {
		return ValidateRating(*in.Rating)
	}
	return nil
}

func (in UpdateInput) apply(b *domain.Bookmark) {
	if in.Title != nil {
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.URL != nil {
		b.URL = strings.TrimSpace(*in.URL)
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Public != nil {
		b.Public = *in.Public
	}
	if in.Favorite != nil {
		b.Favorite = *in.Favorite
	}
	if in.Rating != nil {
		r := *in.Rating
		b.Rating = &r
	}
}

// ValidateRating accepts ratings 1 to 5.
func ValidateRating(r int) error {
	if r < 1 || r > 5 {
		return fmt.Errorf("%w: %w (got %d)", domain.ErrValidation, domain.ErrInvalidRating, r)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	return nil
}

func validateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: url is required", domain.ErrValidation)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: url %q must be an absolute http(s) url", domain.ErrValidation, raw)
	}
	return nil
}
