package publishsanctionevent

import "time"

type Config struct {
	TopicARN string
	Source   string
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Source:  "loan-assistant",
		Timeout: 10 * time.Second,
	}
}
