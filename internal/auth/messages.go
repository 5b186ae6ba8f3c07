package auth

import "strings"

// Error codes returned alongside localized messages so clients can branch
// without parsing prose.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeRateLimited        = "rate_limited"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeWeakPassword       = "weak_password"
	CodeDuplicateEmail     = "duplicate_email"
	CodeInvalidEmail       = "invalid_email"
	CodePasswordMismatch   = "password_mismatch"
	CodeGeneric            = "generic"
)

// messages holds the user-facing copy per locale. French is the product's
// default and the fallback for any unknown locale.
var messages = map[string]map[string]string{
	"fr": {
		CodeInvalidCredentials: "Email ou mot de passe incorrect",
		CodeRateLimited:        "Trop de tentatives, veuillez réessayer plus tard",
		CodeEmailNotConfirmed:  "Veuillez confirmer votre email avant de vous connecter. Vérifiez votre boîte de réception et vos spams.",
		CodeWeakPassword:       "Le mot de passe doit contenir au moins 6 caractères",
		CodeDuplicateEmail:     "Cette adresse email est déjà utilisée",
		CodeInvalidEmail:       "Veuillez entrer une adresse email valide",
		CodePasswordMismatch:   "Les mots de passe ne correspondent pas",
		CodeGeneric:            "Une erreur est survenue, veuillez réessayer",
	},
	"en": {
		CodeInvalidCredentials: "Incorrect email or password",
		CodeRateLimited:        "Too many attempts, please try again later",
		CodeEmailNotConfirmed:  "Please confirm your email before signing in. Check your inbox and spam folder.",
		CodeWeakPassword:       "Password must contain at least 6 characters",
		CodeDuplicateEmail:     "This email address is already in use",
		CodeInvalidEmail:       "Please enter a valid email address",
		CodePasswordMismatch:   "Passwords do not match",
		CodeGeneric:            "An error occurred, please try again",
	},
	"pl": {
		CodeInvalidCredentials: "Nieprawidłowy email lub hasło",
		CodeRateLimited:        "Zbyt wiele prób, spróbuj ponownie później",
		CodeEmailNotConfirmed:  "Potwierdź swój adres email przed zalogowaniem. Sprawdź skrzynkę odbiorczą i spam.",
		CodeWeakPassword:       "Hasło musi zawierać co najmniej 6 znaków",
		CodeDuplicateEmail:     "Ten adres email jest już używany",
		CodeInvalidEmail:       "Wprowadź prawidłowy adres email",
		CodePasswordMismatch:   "Hasła nie są identyczne",
		CodeGeneric:            "Wystąpił błąd, spróbuj ponownie",
	},
}

// Message returns the localized copy for a code, falling back to French and
// then to the generic message.
func Message(code, locale string) string {
	byCode, ok := messages[locale]
	if !ok {
		byCode = messages["fr"]
	}
	if msg, ok := byCode[code]; ok {
		return msg
	}
	return byCode[CodeGeneric]
}

// MapServiceError classifies a raw service error message into one of the
// known codes by substring matching, the way the original surfaced backend
// errors to users. Unmatched errors map to the generic code.
func MapServiceError(raw string) string {
	msg := strings.ToLower(raw)
	switch {
	case strings.Contains(msg, "invalid login credentials"):
		return CodeInvalidCredentials
	case strings.Contains(msg, "rate limit"):
		return CodeRateLimited
	case strings.Contains(msg, "not confirmed"):
		return CodeEmailNotConfirmed
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "duplicate"):
		return CodeDuplicateEmail
	case strings.Contains(msg, "password"):
		return CodeWeakPassword
	case strings.Contains(msg, "email"):
		return CodeInvalidEmail
	default:
		return CodeGeneric
	}
}
