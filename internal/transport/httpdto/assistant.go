package httpdto

type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// AssistantChatRequest is used for POST /v1/assistant/chat
type AssistantChatRequest struct {
	History []ChatTurn `json:"history"`
	Message string     `json:"message" binding:"required"`
}

type AssistantChatResponse struct {
	Reply string `json:"reply"`
}

// EnhanceSkillsRequest is used for POST /v1/assistant/skills
type EnhanceSkillsRequest struct {
	PastExperiences string `json:"pastExperiences"`
	ExistingSkills  string `json:"existingSkills"`
}

type EnhanceSkillsResponse struct {
	Skills string `json:"skills"`
}
