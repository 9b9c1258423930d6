package game

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/pongai/internal/models"
)

// TeamFeedback is the coaching shown to a team after a prompt.
type TeamFeedback struct {
	Success bool     `json:"success"`
	Lines   []string `json:"feedback"`
	Tips    []string `json:"tips"`
}

// Feedback summarizes a team's attempts at the current challenge.
func Feedback(team models.Team, challengeName string) TeamFeedback {
	success := team.RoundComplete()
	return TeamFeedback{
		Success: success,
		Lines:   feedbackLines(len(team.Prompts), success),
		Tips:    tips(challengeName),
	}
}

func feedbackLines(attempts int, success bool) []string {
	switch {
	case attempts == 0:
		return []string{}
	case attempts == 1 && success:
		return []string{
			"Great job solving this on the first try!",
			"Your prompt was concise and captured the key elements.",
		}
	case attempts == 1:
		return []string{
			"Good first attempt, but you missed some key elements.",
			"Try to be more specific about the visual details.",
		}
	case success:
		return []string{
			fmt.Sprintf("It took %d attempts, but you got there!", attempts),
			"You improved by adding more specific descriptors.",
			"Your teamwork evolved the prompt effectively.",
		}
	default:
		return []string{
			"Keep trying! You're getting closer.",
			"Focus on key visual elements in the target.",
			"Be more specific about the scene details.",
		}
	}
}

// tips matches on the challenge name, case-sensitively like the game client.
func tips(challengeName string) []string {
	if strings.Contains(challengeName, "Mountain") || strings.Contains(challengeName, "Landscape") {
		return []string{
			"Describe specific geographical features",
			"Include details about lighting and atmosphere",
			"Mention colors with specific shades",
		}
	}
	if strings.Contains(challengeName, "Haunted") || strings.Contains(challengeName, "House") {
		return []string{
			"Use eerie and specific descriptors",
			"Include sensory details beyond just visuals",
			"Create atmosphere with carefully chosen adjectives",
		}
	}
	return []string{
		"Be specific about key visual elements",
		"Include composition details",
		"Use vivid and precise descriptors",
	}
}
