package challenge

import (
	"fmt"
	"strings"
)

// Suggestions returns starter prompts for teammates, keyed off words in the
// challenge name. Unknown challenges get generic suggestions built from the name.
func Suggestions(name string) []string {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "space") || strings.Contains(lower, "adventure"):
		return []string{
			"Describe a space adventure with starships traveling through nebulae",
			"Create a scene with alien worlds with bizarre landscapes waiting to be discovered",
			"Write about ancient cosmic mysteries lurking in the darkness between stars",
			"Describe a space adventure with both starships and alien civilizations",
			"Create a scene with interstellar explorers discovering ancient cosmic mysteries",
		}
	case strings.Contains(lower, "haunted") || strings.Contains(lower, "house"):
		return []string{
			"Describe a decaying mansion with broken windows like hollow eyes",
			"Write about shadows shifting inside the mansion while floors creak",
			"Create a scene with distant whispers echoing through the cold, empty halls",
			"Describe the overgrown path leading to the haunted mansion",
			"Write about the eerie atmosphere surrounding the abandoned house",
		}
	case strings.Contains(lower, "mountain") || strings.Contains(lower, "landscape"):
		return []string{
			"Describe a snow-capped mountain peak rising above a forest",
			"Create a scene with a clear blue sky and a lake reflecting the scenery",
			"Write about the tranquil beauty of mountains in the morning light",
			"Describe the majestic peaks towering over a peaceful valley",
			"Create a vivid description of mountain landscapes through the seasons",
		}
	case strings.Contains(lower, "city") || strings.Contains(lower, "futuristic"):
		return []string{
			"Describe a gleaming metropolis with flying vehicles zooming between buildings",
			"Create a scene with holographic advertisements lighting up the cityscape",
			"Write about towering skyscrapers stretching into the clouds",
			"Describe the bustling streets of a future city with advanced technology",
			"Create a vivid picture of life in a futuristic urban environment",
		}
	}

	return []string{
		fmt.Sprintf("Describe a %s with vivid details about its most striking features", name),
		fmt.Sprintf("Create a detailed scene about %s with emphasis on atmosphere", name),
		fmt.Sprintf("Write a descriptive paragraph about %s that captures its essence", name),
		fmt.Sprintf("Detail the key elements of %s with sensory descriptions", name),
		fmt.Sprintf("Paint a picture with words about %s focusing on its unique aspects", name),
	}
}
