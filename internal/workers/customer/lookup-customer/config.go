package lookupcustomer

import "time"

type Config struct {
	// MinCreditScore is the lowest score that gets the quick-approval remark.
	MinCreditScore int
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinCreditScore: 700,
		Timeout:        5 * time.Second,
	}
}
