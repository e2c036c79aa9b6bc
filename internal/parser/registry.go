package parsers

import (
	"fmt"

	"logscope/internal/parser/accesslog"
	"logscope/internal/parser/jsonlog"

	"github.com/pterm/pterm"
)

// Registry manages all available log parsers
type Registry struct {
	parsers map[string]LineParser
	logger  *pterm.Logger
}

// NewRegistry creates a new parser registry with all built-in parsers
func NewRegistry(logger *pterm.Logger) *Registry {
	registry := &Registry{
		parsers: make(map[string]LineParser),
		logger:  logger,
	}

	registry.Register("accesslog", accesslog.NewParser(logger))
	registry.Register("jsonlog", jsonlog.NewParser(logger))
	logger.Debug("Registered parsers", logger.Args("types", "accesslog, jsonlog"))

	return registry
}

// Register adds a parser to the registry
func (r *Registry) Register(name string, parser LineParser) {
	r.parsers[name] = parser
}

// Get retrieves a parser by type
func (r *Registry) Get(parserType string) (LineParser, error) {
	parser, exists := r.parsers[parserType]
	if !exists {
		r.logger.WithCaller().Warn("Parser not found", r.logger.Args("type", parserType))
		return nil, fmt.Errorf("parser not found: %s", parserType)
	}
	return parser, nil
}
