// Package common contains shared constants and sentinel errors used across
// gophauth components.
package common

// AccessTokenHeaderName is the HTTP header / gRPC metadata key used to carry
// the access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// NobodyUserID and NobodyLogin identify the builtin anonymous user every
// store is seeded with.
const (
	NobodyUserID = "ab8f87ea-ad93-4365-bdf5-045fee58ee3b"
	NobodyLogin  = "nobody"
	NobodyName   = "Nobody"
	// NobodyAvatar is the local avatar shown for anonymous visitors.
	NobodyAvatar = "/core/images/anonymous.jpg"
)

// DatabaseIDOption is the core_options key holding the database identifier.
const DatabaseIDOption = "core.databaseId"
