package idgen

import (
	"github.com/google/uuid"
)

// ID prefixes for different models
const (
	PrefixLocation = "loc_"
	PrefixSafeZone = "zone_"
	PrefixContact  = "contact_"
	PrefixAction   = "act_"
	PrefixUser     = "usr_"
)

// NewLocation generates a new location ID with loc_ prefix
func NewLocation() string {
	return PrefixLocation + uuid.New().String()
}

// NewSafeZone generates a new safe zone ID with zone_ prefix
func NewSafeZone() string {
	return PrefixSafeZone + uuid.New().String()
}

// NewContact generates a new emergency contact ID with contact_ prefix
func NewContact() string {
	return PrefixContact + uuid.New().String()
}

// NewAction generates a new offline action ID with act_ prefix
func NewAction() string {
	return PrefixAction + uuid.New().String()
}

// NewUser generates a new user ID with usr_ prefix
func NewUser() string {
	return PrefixUser + uuid.New().String()
}

// New generates a generic UUID without prefix (request IDs, tokens)
func New() string {
	return uuid.New().String()
}
