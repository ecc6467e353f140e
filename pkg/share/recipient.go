package share

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/reportshare/pkg/apiclient"
	apierrs "github.com/marmos91/reportshare/pkg/errors"
)

var recipientCheck = validator.New()

// Recipient identifies who a grant is for: an internal user id or an
// external email address. Exactly one of the two is set.
type Recipient struct {
	ID    string `json:"sharedWithId,omitempty"`
	Email string `json:"sharedWithEmail,omitempty"`
}

// ByID returns a recipient identified by internal user id.
func ByID(id string) Recipient {
	return Recipient{ID: strings.TrimSpace(id)}
}

// ByEmail returns a recipient identified by email address.
func ByEmail(email string) Recipient {
	return Recipient{Email: strings.TrimSpace(email)}
}

// RecipientOf returns the recipient of a grant. The id wins when a backend
// populates both fields.
func RecipientOf(g *apiclient.ShareGrant) Recipient {
	if g.SharedWithID != "" {
		return Recipient{ID: g.SharedWithID}
	}
	return Recipient{Email: g.SharedWithEmail}
}

// ParseRecipient classifies raw user input. Input containing "@" must be a
// valid email address; anything else is taken as a user id.
func ParseRecipient(raw string) (Recipient, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Recipient{}, apierrs.NewValidationError("recipient is required")
	}
	if !strings.Contains(raw, "@") {
		return Recipient{ID: raw}, nil
	}
	if err := recipientCheck.Var(raw, "email"); err != nil {
		return Recipient{}, apierrs.NewValidationError("invalid email address: " + raw)
	}
	return Recipient{Email: raw}, nil
}

// Key is the canonical identity used to compare recipients. Emails compare
// case-insensitively; ids compare exactly.
func (r Recipient) Key() string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	return "email:" + strings.ToLower(strings.TrimSpace(r.Email))
}

// IsEmail reports whether the recipient is addressed by email only. Such
// recipients have been invited but may not have an account yet.
func (r Recipient) IsEmail() bool {
	return r.ID == "" && r.Email != ""
}

func (r Recipient) String() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Email
}

// Validate checks that exactly one identifier is set.
func (r Recipient) Validate() error {
	switch {
	case r.ID == "" && r.Email == "":
		return apierrs.NewValidationError("sharedWithId or sharedWithEmail is required")
	case r.ID != "" && r.Email != "":
		return apierrs.NewValidationError("only one of sharedWithId and sharedWithEmail may be set")
	}
	return nil
}
