package storygen

import "fmt"

// StoryPrompt asks for the narration of one educational story.
func StoryPrompt(title, topic string) string {
	return fmt.Sprintf(`Write an engaging educational story with title [%s] (its topic is [%s]).
   You must follow best practices for great storytelling.
   The script must be 15-20 sentences long for a detailed explainer video.
   Story events can be from anywhere in the world, but text must be translated into English language.
   Result result without any formatting and title, as one continuous text.
   Skip new lines.

   IMPORTANT RULES:
   - Do NOT use hyphens (-) or em-dashes (—) anywhere in the text
   - Do NOT use ellipsis (...)
   - Use simple punctuation only: periods, commas, question marks, exclamation marks
   - Write complete sentences without breaking words

   Return your response as JSON in this exact format:
   {"text": "your story text here"}`, title, topic)
}

// ImageDescriptionPrompt splits storyText into illustrated segments.
func ImageDescriptionPrompt(storyText string) string {
	return fmt.Sprintf(`You are given story text.
  Generate (in English) 10-15 image descriptions for this story.
  Story sentences must be in the same order as in the story and their content must be preserved.
  Each image must match 1-2 sentences from the story.

  IMPORTANT - COMIC BOOK STYLE WITH CHARACTERS:
  - Style: Vibrant comic book illustration, graphic novel aesthetic
  - Include expressive human characters with dynamic poses
  - Use bold colors, strong outlines, and dramatic lighting
  - Show action scenes and emotional expressions
  - Characters should be stylized like modern comic books or anime
  - Backgrounds should complement the action
  - NO text, speech bubbles, or UI elements in images
  - NO realistic photography style
  - Think: Marvel comics, anime, or graphic novel panels

  Return your response as JSON in this exact format:
  {"result": [{"text": "sentence from story", "imageDescription": "comic style image description with characters"}]}

  <story>
  %s
  </story>`, storyText)
}

type storyText struct {
	Text string `json:"text" validate:"required"`
}

// Segment is one illustrated slice of the narration.
type Segment struct {
	Text             string `json:"text" validate:"required"`
	ImageDescription string `json:"imageDescription" validate:"required"`
}

type segments struct {
	Result []Segment `json:"result" validate:"required,min=1,dive"`
}
