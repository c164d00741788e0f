package domain

// KeyPrefix namespaces every key venuedex writes. Overridden from config at startup.
var KeyPrefix = "venuedex:"

// SetKeyPrefix replaces the key namespace. Empty values are ignored.
func SetKeyPrefix(p string) {
	if p != "" {
		KeyPrefix = p
	}
}
