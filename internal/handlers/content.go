package handlers

// Copy shown on the prediction form
var formCopy = struct {
	Title          string
	Subtitle       string
	Description    string
	NameLabel      string
	EmailLabel     string
	NotesLabel     string
	Continue       string
	Submitting     string
	SendPrediction string
	Retry          string
	ByPoints       string
	RoundPrefix    string
	Received       string
	SeeResults     string
}{
	Title:          "Fury vs Usyk",
	Subtitle:       "Undisputed Heavyweight Championship Prediction Contest",
	Description:    "The historic clash for all the belts - WBC, WBA, IBF, WBO, and The Ring heavyweight titles",
	NameLabel:      "Your Name",
	EmailLabel:     "Your Email",
	NotesLabel:     "Additional notes about your prediction (optional, max 250 characters)",
	Continue:       "Continue",
	Submitting:     "Submitting...",
	SendPrediction: "Send Prediction",
	Retry:          "Retry",
	ByPoints:       "By Points",
	RoundPrefix:    "R",
	Received:       "Prediction received",
	SeeResults:     "See what everyone else predicted",
}
