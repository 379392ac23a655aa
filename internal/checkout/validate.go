package checkout

import "regexp"

// RFC-shaped, not a full RFC 5322 parser.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// National or international phone, digits with common separators.
var phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{6,19}$`)
