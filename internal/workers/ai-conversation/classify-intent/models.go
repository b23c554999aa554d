package classifyintent

type Input struct {
	Utterance string `json:"utterance"`
}

type Output struct {
	Intent      Intent `json:"intent"`
	RuleIndex   int    `json:"ruleIndex"`
	MatchedRule string `json:"matchedRule"`
}
