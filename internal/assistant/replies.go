package assistant

import (
	"fmt"
	"strings"

	"github.com/54b3r/orangebot-go/internal/analyzer"
	"github.com/54b3r/orangebot-go/internal/customer"
)

// Canned texts.
const (
	GreetingAnonymous = "Hello! 👋 Welcome to Orange Customer Service. How can I assist you today?"
	FarewellReply     = "You're welcome! 😊 Is there anything else I can help you with?"
	LoginRequired     = "I need your profile information to check your plan details. Please log in to your account."
	ApologyReply      = "I apologize, but I encountered an error while processing your request. Please try again, or call 110 for support."

	unknownValue = "Unknown"
)

// PopularQuestions are offered as one-click shortcuts by the HTTP API and
// the terminal client.
var PopularQuestions = []string{
	"How do I check my mobile data usage?",
	"What are the available internet plans?",
	"How to set up mobile internet?",
	"How to pay my Orange bill online?",
	"What is my current mobile plan?",
	"How to contact Orange customer service?",
	"How to change my mobile plan?",
	"How to troubleshoot internet connection?",
	"How to activate roaming services?",
}

// DirectReply returns the canned answer for a direct intent. ok is false for
// intents that need the retrieval pipeline.
func DirectReply(intent analyzer.Intent, profile *customer.Profile) (reply string, ok bool) {
	switch intent {
	case analyzer.IntentGreeting:
		if profile != nil {
			if name := strings.TrimSpace(profile.Name); name != "" {
				return fmt.Sprintf("Hello %s! 👋 How can I help you today?", name), true
			}
		}
		return GreetingAnonymous, true
	case analyzer.IntentFarewell:
		return FarewellReply, true
	case analyzer.IntentOwnPlan:
		if profile == nil {
			return LoginRequired, true
		}
		return fmt.Sprintf(
			"You are currently on the %s plan with %s MB of data for %s EGP per month. You have %s MB remaining in your current quota.",
			orUnknown(profile.MobilePlan),
			orUnknown(profile.MobileDataMB),
			orUnknown(profile.MobileBillEGP),
			orUnknown(profile.RemainingMobileMB),
		), true
	default:
		return "", false
	}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknownValue
	}
	return s
}
