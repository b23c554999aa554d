package llmfallback

type Input struct {
	Utterance string `json:"utterance"`
	Model     string `json:"model,omitempty"`
}

type Output struct {
	Reply  string `json:"reply"`
	Model  string `json:"model"`
	Failed bool   `json:"failed"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
