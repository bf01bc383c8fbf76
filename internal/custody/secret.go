package custody

import "dossier/internal/domain"

const secretLength = 6

// checkSecret enforces the secret policy: exactly six ASCII digits, not all
// the same digit and not a +1 or -1 run such as 123456 or 987654.
func checkSecret(secret string) error {
	if len(secret) != secretLength {
		return domain.ErrInvalidSecret
	}
	for i := 0; i < len(secret); i++ {
		if secret[i] < '0' || secret[i] > '9' {
			return domain.ErrInvalidSecret
		}
	}
	if isWeakSecret(secret) {
		return domain.ErrWeakSecret
	}
	return nil
}

func isWeakSecret(secret string) bool {
	same, up, down := true, true, true
	for i := 1; i < len(secret); i++ {
		d := int(secret[i]) - int(secret[i-1])
		same = same && d == 0
		up = up && d == 1
		down = down && d == -1
	}
	return same || up || down
}

// wellFormed reports whether secret has the shape of a secret at all.
// Unlock only needs this: weak secrets can never have been created.
func wellFormed(secret string) bool {
	if len(secret) != secretLength {
		return false
	}
	for i := 0; i < len(secret); i++ {
		if secret[i] < '0' || secret[i] > '9' {
			return false
		}
	}
	return true
}
