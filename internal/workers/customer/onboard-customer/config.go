package onboardcustomer

import "time"

type Config struct {
	MinCreditScore int
	MaxCreditScore int
	// LimitMultiplier times monthly salary gives the pre-approved limit.
	LimitMultiplier float64
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinCreditScore:  650,
		MaxCreditScore:  850,
		LimitMultiplier: 1.5,
		Timeout:         10 * time.Second,
	}
}
