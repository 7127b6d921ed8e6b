package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/config"
)

func loadConfig(path string) (*config.Config, error) {
	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return c, nil
}

func setupLogging(c *config.Config) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(c.Level())
}

// sessionFlags are shared by run and preview
type sessionFlags struct {
	questions int
	minutes   int
	seconds   int
}

// resolve fills unset flags from config and returns the setup
func (f sessionFlags) resolve(c *config.Config, changed func(string) bool) (int, int) {
	questions, minutes, seconds := c.Session.Questions, c.Session.Minutes, c.Session.Seconds
	if changed("questions") {
		questions = f.questions
	}
	if changed("minutes") {
		minutes = f.minutes
	}
	if changed("seconds") {
		seconds = f.seconds
	}
	return questions, minutes*60 + seconds
}
