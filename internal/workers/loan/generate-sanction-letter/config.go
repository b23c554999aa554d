package generatesanctionletter

import "time"

type Config struct {
	OutputDir string
	// AnnualInterestRate is a percentage, e.g. 12 for 12% p.a.
	AnnualInterestRate float64
	Brand              string
	Compress           bool
	Timeout            time.Duration
}

func LoadConfig() *Config {
	return &Config{
		OutputDir:          "letters",
		AnnualInterestRate: 12,
		Brand:              "Tata Capital",
		Compress:           true,
		Timeout:            10 * time.Second,
	}
}
