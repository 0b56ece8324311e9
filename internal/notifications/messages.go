package notifications

import (
	"github.com/bissquit/comment-notifications/internal/pkg/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Localizable strings. The English text is the catalog key.
const (
	msgNotifyOfUpdates = "Please notify me about new comments posted here."
	msgMustLogin       = "You must login to unsubscribe."
	msgWrongUser       = "You must login as the correct user (the user who submitted the comment) to continue."
	msgLoginAgain      = "You have been logged out. If you would like to login again, enter your credentials below."
	msgSubject         = "New Comment on \"%s\""
)

func init() {
	i18n.Set(msgNotifyOfUpdates, map[language.Tag]string{
		language.German: "Bitte benachrichtigen Sie mich über neue Kommentare zu diesem Beitrag.",
	})
	i18n.Set(msgMustLogin, map[language.Tag]string{
		language.German: "Sie müssen sich anmelden, um sich abzumelden.",
	})
	i18n.Set(msgWrongUser, map[language.Tag]string{
		language.German: "Sie müssen sich als der richtige Benutzer (der Verfasser des Kommentars) anmelden, um fortzufahren.",
	})
	i18n.Set(msgLoginAgain, map[language.Tag]string{
		language.German: "Sie wurden abgemeldet. Wenn Sie sich erneut anmelden möchten, geben Sie unten Ihre Zugangsdaten ein.",
	})
	i18n.Set(msgSubject, map[language.Tag]string{
		language.German: "Neuer Kommentar zu \"%s\"",
	})
}

// PermissionMessages returns the three messages shown when an unsubscribe
// request is refused, keyed by reason.
func PermissionMessages(p *message.Printer) map[DenialReason]string {
	return map[DenialReason]string{
		ReasonNotLoggedIn:    p.Sprintf(msgMustLogin),
		ReasonWrongUser:      p.Sprintf(msgWrongUser),
		ReasonSessionExpired: p.Sprintf(msgLoginAgain),
	}
}
