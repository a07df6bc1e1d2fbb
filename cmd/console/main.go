package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	Timeout    time.Duration `env:"CONSOLE_TIMEOUT" envDefault:"3m"` // scene generation can be slow
}

func main() {
	var cfg ConsoleConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	api := newAPIClient(&http.Client{Timeout: cfg.Timeout}, cfg.APIBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ok := api.testConnection(ctx)
	cancel()
	if !ok {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\nTry: docker-compose up -d\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(api), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
