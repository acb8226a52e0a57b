package token

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tube2mp3/internal/core/domain"
)

//go:embed potgen.js
var generatorScript string

const acquireTimeout = 30 * time.Second

// Provider implements ports.TokenProvider. Configuration is set once at
// construction and read-shared afterward; only AUTO mode does per-call
// work.
type Provider struct {
	config          domain.TokenConfig
	interpreterPath string
	log             zerolog.Logger
}

// New creates a Provider. interpreterPath is the JavaScript interpreter
// used by AUTO mode; empty means "node" from PATH.
func New(config domain.TokenConfig, interpreterPath string, log zerolog.Logger) *Provider {
	if interpreterPath == "" {
		interpreterPath = "node"
	}
	return &Provider{
		config:          config,
		interpreterPath: interpreterPath,
		log:             log.With().Str("component", "token").Logger(),
	}
}

// Current returns the configured token state without any I/O.
func (p *Provider) Current() domain.TokenConfig {
	return p.config
}

// Status reports configuration presence without exposing raw values.
func (p *Provider) Status() domain.TokenStatus {
	return domain.TokenStatus{
		Mode:                  p.config.Mode,
		TokenConfigured:       p.config.PoToken != "",
		VisitorDataConfigured: p.config.VisitorData != "",
	}
}

// Acquire resolves token material for one upstream call. MANUAL mode
// returns the static config verbatim; AUTO mode runs the embedded
// generator script in the external interpreter.
func (p *Provider) Acquire(ctx context.Context) (domain.TokenConfig, error) {
	if p.config.Mode == domain.TokenModeManual {
		if p.config.PoToken == "" && p.config.VisitorData == "" {
			p.log.Warn().Msg("manual token mode with no token material, upstream is more likely to block")
		}
		return p.config, nil
	}
	return p.generate(ctx)
}

func (p *Provider) generate(ctx context.Context) (domain.TokenConfig, error) {
	if _, err := exec.LookPath(p.interpreterPath); err != nil {
		return domain.TokenConfig{}, fmt.Errorf("%w: interpreter %q not found: %v",
			domain.ErrTokenGeneration, p.interpreterPath, err)
	}

	ctx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.interpreterPath, "-")
	cmd.Stdin = strings.NewReader(generatorScript)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.TokenConfig{}, fmt.Errorf("%w: generator timed out", domain.ErrTokenGeneration)
		}
		return domain.TokenConfig{}, fmt.Errorf("%w: %v, stderr: %s",
			domain.ErrTokenGeneration, err, strings.TrimSpace(stderr.String()))
	}

	var material struct {
		PoToken     string `json:"poToken"`
		VisitorData string `json:"visitorData"`
	}
	if err := json.Unmarshal(out.Bytes(), &material); err != nil {
		return domain.TokenConfig{}, fmt.Errorf("%w: bad generator output: %v", domain.ErrTokenGeneration, err)
	}
	if material.PoToken == "" || material.VisitorData == "" {
		return domain.TokenConfig{}, fmt.Errorf("%w: generator returned empty material", domain.ErrTokenGeneration)
	}

	p.log.Debug().Msg("generated fresh token material")

	return domain.TokenConfig{
		Mode:        domain.TokenModeAuto,
		PoToken:     material.PoToken,
		VisitorData: material.VisitorData,
	}, nil
}
