package dto

type StartStoryReq struct {
	StoryId    string `json:"storyId" binding:"required"`
	Title      string `json:"title" binding:"required"`
	ShortTitle string `json:"shortTitle"`
	Topic      string `json:"topic" binding:"required"`
	// PhraseChars groups subtitle words into phrases of at most this many
	// characters. 0 shows one word at a time.
	PhraseChars int `json:"phraseChars" binding:"omitempty,min=0,max=80"`
	// Overwrite replaces an existing timeline with the same story id.
	Overwrite bool `json:"overwrite"`
}

type StartStoryResData struct {
	JobId   string `json:"jobId"`
	StoryId string `json:"storyId"`
}
