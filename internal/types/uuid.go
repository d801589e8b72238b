package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex user_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domain entities

	UUID_PREFIX_USER               = "user"
	UUID_PREFIX_SUBSCRIPTION       = "subs"
	UUID_PREFIX_CREDIT_PACK        = "pack"
	UUID_PREFIX_CREDIT_TRANSACTION = "txn"
	UUID_PREFIX_CHECKOUT_SESSION   = "chks"
)
