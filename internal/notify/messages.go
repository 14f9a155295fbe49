package notify

import (
	"fmt"

	"github.com/campuslf/lostfound/internal/model"
)

const signature = "Best regards,\nCampus Lost & Found Team\n"

// ClaimSubmittedText is the in-app notice sent to an item owner.
func ClaimSubmittedText(claimer, title string) string {
	return fmt.Sprintf("%s has claimed your item: %q. Click 'Reveal Contact' to see their email and arrange a handoff.", claimer, title)
}

// ClaimAcceptedText is the in-app notice sent to a claimer on acceptance.
func ClaimAcceptedText(title string) string {
	return fmt.Sprintf("Great news! Your claim on %q has been accepted. Click 'Reveal Contact' to see the owner's details and arrange pickup soon.", title)
}

// ClaimRejectedText is the in-app notice sent to a claimer on rejection.
func ClaimRejectedText(title string) string {
	return fmt.Sprintf("We're sorry, but your claim on %q was not accepted by the owner. You may try claiming other items or contact support if you believe this was an error.", title)
}

// ClaimSubmittedMail tells the owner their item was claimed.
func ClaimSubmittedMail(owner *model.User, claimer, title, message string) Message {
	if message == "" {
		message = "No message provided"
	}
	return Message{
		To:      owner.Email,
		Subject: "Your item has been claimed - " + title,
		Body: fmt.Sprintf("Hello %s,\n\nYour reported item %q has been claimed by %s.\n\nClaim message: %s\n\n"+
			"Please log in to your account to reveal the claimer's contact information and arrange the handoff.\n\n"+signature,
			owner.Username, title, claimer, message),
	}
}

// ClaimAcceptedMail tells the claimer their claim was accepted. The owner's
// contact details are included only when includeContact is set.
func ClaimAcceptedMail(claimer, owner *model.User, title string, includeContact bool) Message {
	body := fmt.Sprintf("Hello %s,\n\nGreat news! Your claim on %q has been accepted by the owner.\n\n", claimer.Username, title)
	if includeContact {
		body += fmt.Sprintf("Owner Contact Information:\nEmail: %s\nName: %s\n\nPlease contact the owner to arrange pickup of your item.\n\n",
			owner.Email, owner.DisplayName())
	} else {
		body += "Log in and open the notification to reveal the owner's contact information and arrange pickup.\n\n"
	}
	return Message{
		To:      claimer.Email,
		Subject: "Your claim has been accepted - " + title,
		Body:    body + signature,
	}
}

// ClaimRejectedMail tells the claimer their claim was rejected.
func ClaimRejectedMail(claimer *model.User, title string) Message {
	return Message{
		To:      claimer.Email,
		Subject: "Your claim was not accepted - " + title,
		Body: fmt.Sprintf("Hello %s,\n\nYour claim on %q was not accepted by the owner.\n\n"+
			"You may try claiming other items or contact support if you believe this was an error.\n\n"+signature,
			claimer.Username, title),
	}
}

// FoundItemMail tells the owner of a lost item that someone found it.
func FoundItemMail(owner, sender *model.User, title, message string) Message {
	return Message{
		To:      owner.Email,
		Subject: "Someone found your lost item: " + title,
		Body: fmt.Sprintf("Hello %s,\n\n%s has notified you about your lost item %q.\n\nMessage: %s\n\n"+
			"You can reply to %s to arrange pickup.\n\nCampus Lost & Found Team\n",
			owner.Username, sender.Username, title, message, sender.Email),
	}
}
