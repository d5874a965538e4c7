package services

import (
	"fmt"

	"unistay/internal/models"
)

func interestCreatedMsg(ir *models.InterestRequest) Notification {
	body := fmt.Sprintf("A student is interested in your listing %q.", ir.PostTitle)
	if ir.Message != "" {
		body += "\n\nMessage:\n" + ir.Message
	}
	return Notification{
		To:      ir.PostOwnerEmail,
		Subject: "New interest in your listing",
		Body:    body,
		Kind:    KindInterestCreated,
	}
}

func availabilityProposedMsg(ir *models.InterestRequest) Notification {
	a := ir.Availability
	body := fmt.Sprintf(
		"The owner of %q proposed a visit between %s and %s, from %s to %s, in %d-minute slots.\nPick a slot to confirm the appointment.",
		ir.PostTitle, a.StartDate, a.EndDate, a.StartTime, a.EndTime, a.SlotDurationMinutes,
	)
	if ir.AppointmentMessage != "" {
		body += "\n\nMessage from the owner:\n" + ir.AppointmentMessage
	}
	return Notification{
		To:      ir.StudentEmail,
		Subject: "Availability proposed for your request",
		Body:    body,
		Kind:    KindAvailabilityProposed,
	}
}

func appointmentAcceptedMsg(ir *models.InterestRequest) Notification {
	return Notification{
		To:      ir.PostOwnerEmail,
		Subject: "Appointment confirmed",
		Body: fmt.Sprintf("The student confirmed a visit to %q on %s UTC.",
			ir.PostTitle, ir.AppointmentDateTime.Format("2006-01-02 15:04")),
		Kind: KindAppointmentAccepted,
	}
}

func statusChangedMsg(ir *models.InterestRequest, to string) Notification {
	return Notification{
		To:      to,
		Subject: "Interest request updated",
		Body:    fmt.Sprintf("The request for %q is now %s.", ir.PostTitle, ir.Status),
		Kind:    KindStatusChanged,
	}
}

func interestCancelledMsg(ir *models.InterestRequest) Notification {
	return Notification{
		To:      ir.PostOwnerEmail,
		Subject: "Interest request cancelled",
		Body:    fmt.Sprintf("The student cancelled their request for %q.", ir.PostTitle),
		Kind:    KindInterestCancelled,
	}
}

func passwordResetMsg(email, link string) Notification {
	return Notification{
		To:      email,
		Subject: "Reset your UniStay password",
		Body: "We received a request to reset your password.\n\n" +
			"Open this link within 30 minutes to choose a new one:\n" + link + "\n\n" +
			"If you did not ask for this, ignore this email.",
		Kind: KindPasswordReset,
	}
}

func welcomeMsg(u *models.User) Notification {
	return Notification{
		To:      u.Email,
		Subject: "Welcome to UniStay",
		Body:    fmt.Sprintf("Hi %s,\n\nyour UniStay account is ready.", u.Name),
		Kind:    KindWelcome,
	}
}
