package service

import (
	"fmt"

	apperrors "github.com/spec-kit/sundown-service/pkg/util"
)

// Reply texts for the conversation layer. Every error the engine can
// produce maps to one of these; nothing propagates to the transport as an
// unhandled fault.
const (
	replyWelcome = "Welcome to Sundown! Text me a city or address and I'll send you a daily sunset quality forecast. Where should I watch the sky?"

	replyAskLocation = "I don't have a location for you yet. Text me a city or address first."

	replyAskAgain = "No problem. Send your location again - a bit more detail helps (city and state, or a full address)."

	replyInvalidLocation = "Invalid location. Please enter a valid address."

	replyProviderDown = "The sunset service is having trouble right now. Try again later."

	replyNoSunset = "No sunset occurs at your location today. Polar skies keep their own schedule."

	replyDuplicate = "You're already signed up. Text REFRESH for a forecast, or CHANGE LOCATION TO <city> to move."
)

func replyConfirm(label string) string {
	return fmt.Sprintf("I found: %s\nIs that right? Reply YES or NO.", label)
}

func replySetupComplete(label string) string {
	return fmt.Sprintf("You're all set! You'll get a daily sunset forecast for %s. Text REFRESH anytime for the latest prediction.", label)
}

func replyLocationUpdated(label string) string {
	return fmt.Sprintf("Location updated to %s.", label)
}

func replySameCity(label string) string {
	return fmt.Sprintf("Current city is already %s.", label)
}

func replyHelp(location string) string {
	if location == "" {
		return "Text REFRESH for the latest sunset prediction.\nTo change your city, text CHANGE LOCATION TO NEW YORK, NY"
	}
	return fmt.Sprintf("Text REFRESH for the latest sunset prediction.\nCurrent city: %s\nTo change your city, text CHANGE LOCATION TO NEW YORK, NY", location)
}

// replyForError folds a typed conversation error into its SMS text. SMS has
// no error channel, so every DomainError the layer can produce ends as one
// of the replies above.
func replyForError(err error, location string) string {
	switch {
	case apperrors.HasCode(err, apperrors.CodeInvalidLocation):
		return replyInvalidLocation
	case apperrors.HasCode(err, apperrors.CodeTimeUnavailable):
		return replyNoSunset
	case apperrors.HasCode(err, apperrors.CodeDuplicateClient):
		return replyDuplicate
	case apperrors.HasCode(err, apperrors.CodeUnknownCommand):
		return replyHelp(location)
	default:
		return replyProviderDown
	}
}
