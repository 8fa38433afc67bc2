// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"strings"
)

// emergencyKeywords trigger the escalation reply regardless of topic.
var emergencyKeywords = []string{
	"seizure", "not breathing", "blood", "choking", "critical",
	"unconscious", "collapse", "severe bleeding", "difficulty breathing",
	"emergency", "urgent", "dying", "dead", "heart attack", "stroke",
}

// nonPetTopics are deflected; the stub only talks about pet care.
var nonPetTopics = []string{
	"weather", "politics", "cooking", "sports", "movies", "music",
	"travel", "work", "job", "school", "study",
}

// emergencyReply is worded to trip the client's emergency scan.
const emergencyReply = "This sounds like an emergency! Please call an " +
	"emergency veterinary clinic immediately. Keep your pet calm and get " +
	"them to a vet right away."

const deflectReply = "I'm here to help with pet health questions. " +
	"What can I help you with regarding your pet?"

const defaultReply = "Thanks for the details. For anything persistent or " +
	"worsening, a veterinarian should take a look. Can you tell me more " +
	"about your pet's symptoms, appetite, and energy level?"

// topicRule maps trigger keywords to a canned veterinary answer.
type topicRule struct {
	keywords []string
	reply    string
}

// topicRules are checked in order; first match wins.
var topicRules = []topicRule{
	{
		keywords: []string{"scratch", "itch", "ears", "skin"},
		reply: "Frequent scratching often points to fleas, allergies, or an " +
			"ear infection. Check the skin for redness and the ears for odor " +
			"or discharge. If it lasts more than a few days, have a vet " +
			"examine your pet.",
	},
	{
		keywords: []string{"chocolate", "grape", "raisin", "onion", "xylitol", "poison", "toxic"},
		reply: "That can be toxic to pets. Note how much was eaten and when, " +
			"and call your vet or a pet poison hotline right away. Do not " +
			"induce vomiting unless a professional tells you to.",
	},
	// Vaccines before feeding: "puppy" appears in both and vaccine
	// questions usually name the pet's age.
	{
		keywords: []string{"vaccine", "vaccination", "shot", "rabies"},
		reply: "Core vaccines for puppies start around 6-8 weeks with boosters " +
			"every 3-4 weeks until 16 weeks, then rabies per local law. Your " +
			"vet can tailor the schedule to your pet's risk factors.",
	},
	{
		keywords: []string{"feed", "food", "diet", "eating", "appetite", "kitten", "puppy"},
		reply: "Young pets need small, frequent meals of age-appropriate food; " +
			"adults usually do well on two meals a day. A sudden loss of " +
			"appetite lasting more than a day is worth a vet visit.",
	},
	{
		keywords: []string{"vomit", "throw up", "diarrhea", "stool"},
		reply: "A single episode with normal behavior can be watched at home " +
			"with water and a bland meal. Repeated vomiting, lethargy, or " +
			"blood means a prompt vet visit.",
	},
	{
		keywords: []string{"limp", "leg", "paw", "walk"},
		reply: "Rest your pet and check the paw for cuts, swelling, or foreign " +
			"objects. A limp that does not improve within a day or two, or any " +
			"obvious pain, needs a veterinary exam.",
	},
}

// Responder produces canned veterinary answers for the development stub.
// It mirrors the real service's behavior shape: emergency escalation
// first, topic deflection second, keyword rules, then a generic prompt
// for more detail.
type Responder struct{}

// NewResponder creates a Responder.
func NewResponder() *Responder {
	return &Responder{}
}

// IsEmergency reports whether the message trips the escalation keywords.
func (r *Responder) IsEmergency(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Respond returns the canned reply for a message.
func (r *Responder) Respond(message string) string {
	lower := strings.ToLower(message)

	if r.IsEmergency(message) {
		return emergencyReply
	}

	for _, topic := range nonPetTopics {
		if strings.Contains(lower, topic) {
			return deflectReply
		}
	}

	for _, rule := range topicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.reply
			}
		}
	}

	return defaultReply
}
