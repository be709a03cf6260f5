package workflow

import (
	"time"
)

// Config is the explicit configuration handle of an Engine. Credentials are
// checked by the initialize step of every run.
type Config struct {
	SearchAPIKey string
	LLMAPIKey    string
	// LLMKeyless marks a language model backend that needs no key, such as a
	// local Ollama server.
	LLMKeyless bool

	QueryCount       int
	CallTimeout      time.Duration
	ScoreConcurrency int
	ErrorBudget      int
	RunTimeout       time.Duration
	TitleThreshold   float64
}

// DefaultConfig returns the defaults used for every zero field.
func DefaultConfig() Config {
	return Config{
		QueryCount:       5,
		CallTimeout:      20 * time.Second,
		ScoreConcurrency: 5,
		ErrorBudget:      10,
		RunTimeout:       120 * time.Second,
		TitleThreshold:   0.8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QueryCount <= 0 {
		c.QueryCount = d.QueryCount
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	if c.ScoreConcurrency <= 0 {
		c.ScoreConcurrency = d.ScoreConcurrency
	}
	if c.ErrorBudget <= 0 {
		c.ErrorBudget = d.ErrorBudget
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = d.RunTimeout
	}
	if c.TitleThreshold <= 0 || c.TitleThreshold > 1 {
		c.TitleThreshold = d.TitleThreshold
	}
	return c
}
