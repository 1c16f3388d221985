package handlers

import (
	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/services"
)

type APIHandlers struct {
	Info    *InfoHandler
	Emails  *EmailsHandler
	Results *ResultsHandler
}

func InitHandlers(cfg *config.Config, s *services.Services) *APIHandlers {
	return &APIHandlers{
		Info:    NewInfoHandler(cfg, s.AIService),
		Emails:  NewEmailsHandler(cfg, s),
		Results: NewResultsHandler(s.Repositories, cfg.Secrets()),
	}
}
