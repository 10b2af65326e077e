package ports

// Hasher fingerprints command templates.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// HashArgs returns a stable fingerprint of an argument list.
	HashArgs(args []string) string
}
