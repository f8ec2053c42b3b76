package notifier

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	config "github.com/NordCoder/Homeroom/internal/config/email-notifier"
	"github.com/NordCoder/Homeroom/internal/domain/notification"
)

type Message struct {
	Subject string
	Body    string
}

func link(tpl, token string) string {
	return strings.ReplaceAll(tpl, "{token}", url.QueryEscape(token))
}

func greeting(ev notification.MailEvent) string {
	if ev.FirstName == "" {
		return "Hello,"
	}
	return "Hello " + ev.FirstName + ","
}

// Render builds the mail for ev. ok is false for kinds this service does not send.
func Render(links config.Links, ev notification.MailEvent) (msg Message, ok bool) {
	switch ev.Kind {
	case notification.KindVerification:
		return Message{
			Subject: "Confirm your email address",
			Body: fmt.Sprintf("%s\n\nPlease confirm your Homeroom email address by opening the link below:\n\n%s\n\n"+
				"If you did not create an account, you can ignore this message.\n",
				greeting(ev), link(links.VerifyURL, ev.Token)),
		}, true
	case notification.KindPasswordReset:
		expires := "soon"
		if !ev.ExpiresAt.IsZero() {
			expires = "at " + ev.ExpiresAt.UTC().Format(time.RFC1123)
		}
		return Message{
			Subject: "Reset your password",
			Body: fmt.Sprintf("%s\n\nWe received a request to reset your Homeroom password. Open the link below to choose a new one:\n\n%s\n\n"+
				"The link expires %s. If you did not ask for a reset, no action is needed.\n",
				greeting(ev), link(links.ResetURL, ev.Token), expires),
		}, true
	default:
		return Message{}, false
	}
}
