package email

import "strings"

// Template is the transactional activation email for one locale. The body
// keeps the %confirmation_url% placeholder until send time.
type Template struct {
	Subject    string
	Body       string
	SenderName string
	ReplyTo    string
}

const senderName = "Courseflow"
const replyTo = "contact@courseflow.example"

var activationTemplates = map[string]Template{
	"fr": {
		Subject: "🌱 Bienvenue sur Courseflow - Activez votre compte",
		Body: `Bonjour,

Merci de nous avoir rejoints ! Pour activer votre compte et accéder à vos cours, suivez ces étapes simples :

1. Cliquez sur le lien « Activer mon compte » ci-dessous
2. Vous serez redirigé(e) vers notre plateforme
3. Connectez-vous avec votre email et mot de passe

👉 Activer mon compte :
%confirmation_url%

⚠️ Important : Ce lien d'activation expire dans 24 heures.

Pourquoi activer votre compte ?
- Accéder à tous nos contenus gratuits
- Recevoir des conseils personnalisés
- Suivre votre progression

Si vous ne parvenez pas à cliquer sur le lien, copiez-collez l'URL complète dans votre navigateur.

Besoin d'aide ? Répondez simplement à cet email.

À très vite !

L'équipe Courseflow
--
Si vous n'avez pas créé de compte, vous pouvez ignorer cet email.`,
		SenderName: senderName,
		ReplyTo:    replyTo,
	},
	"en": {
		Subject: "🌱 Welcome to Courseflow - Activate Your Account",
		Body: `Hello,

Thank you for joining! To activate your account and access your courses, follow these simple steps:

1. Click the "Activate my account" link below
2. You'll be redirected to our platform
3. Log in with your email and password

👉 Activate my account:
%confirmation_url%

⚠️ Important: This activation link expires in 24 hours.

Why activate your account?
- Access all our free content
- Receive personalized advice
- Track your progress

If you can't click the link, copy and paste the complete URL into your browser.

Need help? Simply reply to this email.

See you soon!

The Courseflow Team
--
If you didn't create an account, you can ignore this email.`,
		SenderName: senderName,
		ReplyTo:    replyTo,
	},
	"pl": {
		Subject: "🌱 Witamy w Courseflow - Aktywuj swoje konto",
		Body: `Cześć,

Dziękujemy za dołączenie! Aby aktywować konto i uzyskać dostęp do kursów, wykonaj te proste kroki:

1. Kliknij link „Aktywuj moje konto" poniżej
2. Zostaniesz przekierowany(a) na naszą platformę
3. Zaloguj się używając swojego emaila i hasła

👉 Aktywuj moje konto:
%confirmation_url%

⚠️ Ważne: Ten link aktywacyjny wygasa za 24 godziny.

Dlaczego warto aktywować konto?
- Dostęp do wszystkich darmowych treści
- Otrzymywanie spersonalizowanych porad
- Śledzenie postępów

Jeśli nie możesz kliknąć w link, skopiuj i wklej pełny adres URL do przeglądarki.

Potrzebujesz pomocy? Po prostu odpowiedz na tego emaila.

Do zobaczenia wkrótce!

Zespół Courseflow
--
Jeśli nie utworzyłeś konta, możesz zignorować tego emaila.`,
		SenderName: senderName,
		ReplyTo:    replyTo,
	},
}

// ActivationTemplate returns the template for a locale, falling back to the
// French default for anything unknown.
func ActivationTemplate(locale string) Template {
	if tpl, ok := activationTemplates[locale]; ok {
		return tpl
	}
	return activationTemplates["fr"]
}

// Render substitutes the confirmation URL into the template body.
func (t Template) Render(confirmURL string) string {
	return strings.ReplaceAll(t.Body, "%confirmation_url%", confirmURL)
}
