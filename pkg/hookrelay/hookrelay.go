// Package hookrelay provides the public API for embedding the hook pipeline.
// This is the stable API for external consumers.
package hookrelay

import (
	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/core/ports"
	"github.com/tjfontaine/hookrelay/internal/pipeline"
	"github.com/tjfontaine/hookrelay/internal/pkg/config"
)

// Pipeline runs hook events through transform, dispatch and interpret.
// See internal/pipeline.Pipeline for full documentation.
type Pipeline = pipeline.Pipeline

// Result is the outcome of Pipeline.Run.
type Result = pipeline.Result

// Option is a functional option for configuring a Pipeline.
type Option = pipeline.Option

// Domain types
type (
	Endpoint       = domain.Endpoint
	RetryPolicy    = domain.RetryPolicy
	Decision       = domain.Decision
	ExitCode       = domain.ExitCode
	Envelope       = domain.Envelope
	TransportError = domain.TransportError
	Config         = config.Config
	LoadOptions    = config.LoadOptions
	Progress       = ports.Progress
)

// Exit codes for the three decisions. Every other code is an error.
const (
	ExitAllow   = domain.ExitAllow
	ExitBlock   = domain.ExitBlock
	ExitAskUser = domain.ExitAskUser
)

// New creates a Pipeline from explicit components.
var New = pipeline.New

// NewFromConfig creates a Pipeline from loaded configuration.
// Example:
//
//	cfg, err := hookrelay.LoadConfig(hookrelay.LoadOptions{Path: "hookrelay.yaml"})
//	if err != nil {
//	    return err
//	}
//	p, err := hookrelay.NewFromConfig(cfg, hookrelay.WithLogger(logger))
var NewFromConfig = pipeline.NewFromConfig

// LoadConfig layers the config file, environment and overrides.
var LoadConfig = config.Load

// Configuration options
var (
	// Components
	WithTransformer = pipeline.WithTransformer
	WithDispatcher  = pipeline.WithDispatcher
	WithInterpreter = pipeline.WithInterpreter

	// Dispatch
	WithEndpoints   = pipeline.WithEndpoints
	WithRetryPolicy = pipeline.WithRetryPolicy
	WithFailOpen    = pipeline.WithFailOpen
	WithDeadline    = pipeline.WithDeadline

	// Observability
	WithLogger    = pipeline.WithLogger
	WithMetrics   = pipeline.WithMetrics
	WithUserAgent = pipeline.WithUserAgent
	WithProgress  = pipeline.WithProgress
)

// DefaultRetryPolicy returns the standard per-endpoint attempt budgets.
var DefaultRetryPolicy = domain.DefaultRetryPolicy

// NewDefault creates a Pipeline with the standard transformer, HTTP
// dispatcher and interpreter.
var NewDefault = pipeline.NewDefault
