package ui

import (
	"math/rand"
	"strings"
)

// Feedback one-liners shown after an answer is finalized. The verdict itself
// always comes from the server's answer record, never from local scoring.
var correctMessages = []string{
	"Excellent! You nailed it.",
	"That's right, keep it up!",
	"Sharp answer, well done.",
	"Correct! Your gums thank you.",
	"Spot on, periodontal pro.",
	"Great, one step closer to the finish.",
}

var incorrectMessages = []string{
	"Not quite, take a breath.",
	"That one slipped away.",
	"Incorrect, but you are still in the game.",
	"Ouch, that costs a life.",
	"Wrong answer, read the feedback carefully.",
	"Missed it. The next one is yours.",
}

// CorrectLine picks a randomized congratulation line.
func CorrectLine() string {
	return correctMessages[rand.Intn(len(correctMessages))]
}

// IncorrectLine picks a randomized consolation line.
func IncorrectLine() string {
	return incorrectMessages[rand.Intn(len(incorrectMessages))]
}

// Hearts renders the lives display: filled hearts for remaining lives out of
// the fixed total of three.
func Hearts(lives int) string {
	const total = 3
	if lives < 0 {
		lives = 0
	}
	if lives > total {
		lives = total
	}
	var sb strings.Builder
	for i := 0; i < total; i++ {
		if i < lives {
			sb.WriteString("♥")
		} else {
			sb.WriteString("♡")
		}
	}
	return sb.String()
}
